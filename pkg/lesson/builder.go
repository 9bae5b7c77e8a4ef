package lesson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/config"
)

// Course types by block color.
const (
	OnCourseType  = "gyakorlat"
	OffCourseType = "előadás"
)

var (
	// ErrNoDay is returned when a partition index has no entry in Options.Days.
	ErrNoDay = errors.New("partition has no weekday")
	// ErrWindowTooTall is returned when the grid has more rows than the hour
	// window has minutes.
	ErrWindowTooTall = errors.New("rows exceed the minutes of the hour window")
)

// Options control how blocks become lessons.
type Options struct {
	// Days names one weekday per partition
	Days      []string
	Subjects  []string
	Locations []string
	Teachers  []string

	StartHour int
	EndHour   int
	Semester  Semester

	// Seed drives the choice of subject, location and teacher
	Seed int64
}

// DefaultOptions returns the catalogs of the reference timetable.
func DefaultOptions() Options {
	return Options{
		Days: []string{"h", "k", "s", "c", "p"},
		Subjects: []string{
			"Analízis II Ea",
			"Analízis II Gy",
			"Programozáselmélet",
			"Eseményvezérelt Alkalmazások Ea+Gy",
			"Diszkrét matematika II Ea",
			"Diszkrét matematika II Gy",
			"Algoritmusok és Adatszerkezetek II Ea",
			"Algoritmusok és Adatszerkezetek II Gy",
			"Webprogramozás Ea+Gy",
		},
		Locations: []string{"Bolyai", "Mogyoródi", "Déli Tömb", "Északi Tömb"},
		Teachers: []string{
			"Reimu Hakurei",
			"Marisa Kirisame",
			"Patchouli Knowledge",
			"Remilia Scarlet",
			"Izayoi Sakuya",
			"Flemish Scarlet",
			"Konpaku Youmu",
			"Saigyouji Yuyuko",
		},
		StartHour: 8,
		EndHour:   22,
		Semester:  Semester{StartYear: 2026},
		Seed:      1,
	}
}

// OptionsFromConfig applies the timetable section of cfg to the defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.StartHour = cfg.StartHour
	opts.EndHour = cfg.EndHour
	opts.Semester = Semester{StartYear: cfg.SemesterYear, IsSpring: cfg.SemesterSpring}
	opts.Seed = cfg.Seed
	return opts
}

// Builder turns compressed sequences into lesson videos. A Builder is not
// safe for concurrent use.
type Builder struct {
	opts Options
	rng  *rand.Rand
}

// NewBuilder returns a builder whose random picks are seeded from opts.Seed.
func NewBuilder(opts Options) *Builder {
	return &Builder{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
}

// Build maps every distinct block of every partition to a lesson. Blocks are
// ordered by Order; ties keep partition then first-seen order.
func (b *Builder) Build(seq *block.Sequence) (*LessonVideo, error) {
	video := &LessonVideo{
		Blocks:     []LessonBlock{},
		FPS:        seq.FPS,
		FrameCount: seq.FrameCount,
	}

	for _, p := range seq.Partitions {
		for _, blk := range p.Grid.Distinct() {
			lb, err := b.LessonBlock(blk, p.Index, p.Grid.Rows())
			if err != nil {
				return nil, err
			}
			video.Blocks = append(video.Blocks, lb)
		}
	}

	sort.SliceStable(video.Blocks, func(i, j int) bool {
		return video.Blocks[i].Order < video.Blocks[j].Order
	})

	return video, nil
}

// Span returns the lesson times of a block spanning rows out of a day of
// the given height.
func (b *Builder) Span(blk block.Block, rows int) (Time, Time, error) {
	window := (b.opts.EndHour - b.opts.StartHour) * 60
	unit := 0
	if rows > 0 {
		unit = window / rows
	}
	if unit == 0 {
		return Time{}, Time{}, fmt.Errorf("%w: %d rows in %d minutes", ErrWindowTooTall, rows, window)
	}

	start := blk.StartHeight*unit + b.opts.StartHour*60
	end := (blk.EndHeight+1)*unit + b.opts.StartHour*60
	return TimeOf(start), TimeOf(end), nil
}

// LessonBlock maps one block of the given partition.
func (b *Builder) LessonBlock(blk block.Block, partition, rows int) (LessonBlock, error) {
	if partition < 0 || partition >= len(b.opts.Days) {
		return LessonBlock{}, fmt.Errorf("%w: partition %d", ErrNoDay, partition)
	}

	start, end, err := b.Span(blk, rows)
	if err != nil {
		return LessonBlock{}, err
	}

	courseType := OffCourseType
	if blk.Color {
		courseType = OnCourseType
	}

	order := strconv.Itoa(blk.Order)
	lesson := Lesson{
		SubjectName:       b.pick(b.opts.Subjects),
		SubjectCode:       order,
		Day:               b.opts.Days[partition],
		StartTime:         start,
		EndTime:           end,
		Semester:          b.opts.Semester,
		Location:          b.pick(b.opts.Locations),
		CourseType:        courseType,
		CourseCode:        order,
		TeacherAndComment: b.pick(b.opts.Teachers),
	}

	id, err := lessonID(lesson, blk)
	if err != nil {
		return LessonBlock{}, err
	}

	return LessonBlock{
		LessonData: LessonData{ID: id, Lesson: lesson},
		Order:      blk.Order,
		StartTime:  blk.StartTime,
		EndTime:    blk.EndTime,
	}, nil
}

func (b *Builder) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[b.rng.Intn(len(options))]
}

func lessonID(lesson Lesson, blk block.Block) (string, error) {
	data, err := json.Marshal(lesson)
	if err != nil {
		return "", fmt.Errorf("failed to encode lesson: %w", err)
	}

	h := xxhash.New()
	h.Write(data)
	fmt.Fprintf(h, "|%d|%d", blk.StartTime, blk.EndTime)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
