package lesson

import (
	"encoding/json"
	"fmt"
	"io"
)

// Frames expands a video into the lessons visible in each frame.
func Frames(video *LessonVideo) ([][]LessonData, error) {
	frames := make([][]LessonData, video.FrameCount)
	for i := range frames {
		frames[i] = []LessonData{}
	}

	for _, b := range video.Blocks {
		if b.StartTime < 0 || b.EndTime >= video.FrameCount || b.StartTime > b.EndTime {
			return nil, fmt.Errorf("block %s spans frames %d-%d outside 0-%d",
				b.LessonData.ID, b.StartTime, b.EndTime, video.FrameCount-1)
		}
		for f := b.StartTime; f <= b.EndTime; f++ {
			frames[f] = append(frames[f], b.LessonData)
		}
	}
	return frames, nil
}

// WriteJSON writes video in the player's JSON format.
func WriteJSON(w io.Writer, video *LessonVideo) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(video); err != nil {
		return fmt.Errorf("failed to encode lesson video: %w", err)
	}
	return nil
}

// ReadJSON reads a video written by WriteJSON.
func ReadJSON(r io.Reader) (*LessonVideo, error) {
	var video LessonVideo
	if err := json.NewDecoder(r).Decode(&video); err != nil {
		return nil, fmt.Errorf("failed to decode lesson video: %w", err)
	}
	return &video, nil
}
