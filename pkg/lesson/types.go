// Package lesson maps compressed blocks onto timetable lessons, one
// partition per weekday, so a timetable player can replay the video.
package lesson

// Time is a wall-clock time of day.
type Time struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes returns the minutes since midnight.
func (t Time) Minutes() int {
	return t.Hour*60 + t.Minute
}

// TimeOf converts minutes since midnight into a Time.
func TimeOf(minutes int) Time {
	return Time{Hour: minutes / 60, Minute: minutes % 60}
}

type Semester struct {
	StartYear int  `json:"startYear"`
	IsSpring  bool `json:"isSpring"`
}

type Lesson struct {
	SubjectName       string   `json:"subjectName"`
	SubjectCode       string   `json:"subjectCode"`
	Day               string   `json:"day"`
	StartTime         Time     `json:"startTime"`
	EndTime           Time     `json:"endTime"`
	DetailedTime      string   `json:"detailedTime"`
	Semester          Semester `json:"semester"`
	Location          string   `json:"location"`
	CourseType        string   `json:"courseType"`
	CourseCode        string   `json:"courseCode"`
	TeacherAndComment string   `json:"teacherAndComment"`
}

type LessonData struct {
	ID     string `json:"id"`
	Lesson Lesson `json:"lesson"`
	Edited bool   `json:"edited"`
}

// LessonBlock is one compressed block as a lesson visible from StartTime to
// EndTime, both inclusive frame indices.
type LessonBlock struct {
	LessonData LessonData `json:"lessonData"`
	Order      int        `json:"order"`
	StartTime  int        `json:"start_time"`
	EndTime    int        `json:"end_time"`
}

// LessonVideo is the playable result of a compression run.
type LessonVideo struct {
	Blocks     []LessonBlock `json:"blocks"`
	FPS        int           `json:"fps"`
	FrameCount int           `json:"frame_count"`
}
