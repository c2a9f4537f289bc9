package detector

import (
	"errors"
	"testing"
)

func TestHandLandmarks_Slice(t *testing.T) {
	t.Run("returns all landmarks in order", func(t *testing.T) {
		hand := OpenHandLandmarks()
		points := hand.Slice()

		if len(points) != NumLandmarks {
			t.Fatalf("expected %d points, got %d", NumLandmarks, len(points))
		}
		if points[IndexTip] != hand.Points[IndexTip] {
			t.Errorf("expected index tip %v, got %v", hand.Points[IndexTip], points[IndexTip])
		}
	})

	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *HandLandmarks
		if hand.Slice() != nil {
			t.Error("expected nil slice for nil hand")
		}
	})
}

func TestFirst(t *testing.T) {
	if First(nil) != nil {
		t.Error("expected nil for no hands")
	}

	hands := []HandLandmarks{FistLandmarks(), OpenHandLandmarks()}
	first := First(hands)
	if first == nil {
		t.Fatal("expected first hand")
	}
	if first.Points[IndexTip] != hands[0].Points[IndexTip] {
		t.Error("expected the first hand to be returned")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenHandLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Errorf("expected 1 hand, got %d", len(hands))
		}
	})

	t.Run("replays script then falls back to hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenHandLandmarks()})
		mock.SetScript([][]HandLandmarks{
			{FistLandmarks()},
			nil,
		})

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first) != 1 || first[0].Points[IndexTip] != FistLandmarks().Points[IndexTip] {
			t.Errorf("expected scripted fist on first call, got %v", first)
		}
		if second != nil {
			t.Errorf("expected no hand on second call, got %v", second)
		}
		if len(third) != 1 || third[0].Points[IndexTip] != OpenHandLandmarks().Points[IndexTip] {
			t.Errorf("expected configured open hand after script, got %v", third)
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands on error, got %v", hands)
		}
	})

	t.Run("close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestJSONHand_ToHandLandmarks(t *testing.T) {
	t.Run("full hand converts", func(t *testing.T) {
		h := jsonHand{Handedness: "Left", Score: 0.8}
		for i := 0; i < NumLandmarks; i++ {
			h.Points = append(h.Points, jsonPoint{X: float64(i) / 100, Y: 0.5, Z: 0})
		}

		lm, err := h.toHandLandmarks()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lm.Handedness != "Left" || lm.Score != 0.8 {
			t.Errorf("metadata not preserved: %+v", lm)
		}
		if lm.Points[PinkyTip].X != 0.2 {
			t.Errorf("expected pinky tip X 0.2, got %f", lm.Points[PinkyTip].X)
		}
	})

	t.Run("short hand is rejected", func(t *testing.T) {
		h := jsonHand{Points: make([]jsonPoint, 10)}
		if _, err := h.toHandLandmarks(); err == nil {
			t.Error("expected error for incomplete hand")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxHands != 1 {
		t.Errorf("expected MaxHands 1, got %d", cfg.MaxHands)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("expected MinConfidence 0.7, got %f", cfg.MinConfidence)
	}
	if cfg.MinTrackingConf != 0.5 {
		t.Errorf("expected MinTrackingConf 0.5, got %f", cfg.MinTrackingConf)
	}
}
