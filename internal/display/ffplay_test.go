package display

import (
	"errors"
	"strings"
	"testing"
)

func TestFFplaySink_BuildArgs(t *testing.T) {
	s := NewFFplaySink("ffplay", "Stereo Camera Feed")
	args := strings.Join(s.buildArgs(1280, 480), " ")

	// 生ピクセル・BGR24・寸法・標準入力の指定が揃っていること
	for _, want := range []string{
		"-f rawvideo",
		"-pixel_format bgr24",
		"-video_size 1280x480",
		"-i pipe:0",
		"-window_title Stereo Camera Feed",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("Expected args to contain %q, got %q", want, args)
		}
	}
}

func TestFFplaySink_WriteBeforeOpen(t *testing.T) {
	s := NewFFplaySink("ffplay", "test")

	err := s.Write([]byte{1, 2, 3})
	if !errors.Is(err, ErrWrite) {
		t.Errorf("Expected ErrWrite before open, got %v", err)
	}
}

func TestFFplaySink_CloseIdempotent(t *testing.T) {
	s := NewFFplaySink("ffplay", "test")

	// 起動前のクローズも複数回のクローズも安全
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("Close #%d failed: %v", i+1, err)
		}
	}

	// クローズ後の書き込みは拒否される
	if err := s.Write([]byte{0}); !errors.Is(err, ErrWrite) {
		t.Errorf("Expected ErrWrite after close, got %v", err)
	}
}
