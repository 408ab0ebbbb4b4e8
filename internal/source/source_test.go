package source

import (
	"context"
	"errors"
	"image"
	"testing"
)

func TestProgress_EstimatedTotal(t *testing.T) {
	tests := []struct {
		name string
		p    Progress
		want int64
	}{
		{"unknown total rounds up to MiB", Progress{Loaded: 2_500_000, Total: -1}, 3_145_728},
		{"exact multiple", Progress{Loaded: 2 * MiB, Total: -1}, 2 * MiB},
		{"nothing loaded", Progress{Loaded: 0, Total: -1}, 0},
		{"single byte", Progress{Loaded: 1, Total: -1}, MiB},
		{"known total", Progress{Loaded: 10, Total: 500}, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.EstimatedTotal(); got != tt.want {
				t.Errorf("EstimatedTotal() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProgress_EstimateNeverRegresses(t *testing.T) {
	var last int64
	for loaded := int64(0); loaded < 5*MiB; loaded += 123_457 {
		got := Progress{Loaded: loaded, Total: -1}.EstimatedTotal()
		if got < last {
			t.Fatalf("estimate regressed at %d: %d < %d", loaded, got, last)
		}
		if got < loaded {
			t.Fatalf("estimate %d below loaded %d", got, loaded)
		}
		last = got
	}
}

func TestMockPage_RenderCancelled(t *testing.T) {
	p := NewMockPage(0, 10, 10)
	p.Gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- p.Render(ctx, image.NewRGBA(image.Rect(0, 0, 10, 10)), 1)
	}()
	cancel()

	if out := <-done; out.Status != OutcomeCancelled {
		t.Errorf("outcome = %v, want cancelled", out.Status)
	}
	if p.Cancellations() != 1 {
		t.Errorf("Cancellations() = %d, want 1", p.Cancellations())
	}
}

func TestMockOpener_Password(t *testing.T) {
	doc := NewMockDocument(Geometry{Width: 1, Height: 1})
	o := &MockOpener{Doc: doc, Password: "secret"}

	t.Run("no callback", func(t *testing.T) {
		_, err := o.Open(context.Background(), nil, OpenOptions{})
		if !errors.Is(err, ErrPasswordRequired) {
			t.Errorf("error = %v, want ErrPasswordRequired", err)
		}
	})

	t.Run("retries after incorrect password", func(t *testing.T) {
		var reasons []PasswordReason
		answers := []string{"wrong", "secret"}
		_, err := o.Open(context.Background(), nil, OpenOptions{
			Password: func(r PasswordReason) string {
				reasons = append(reasons, r)
				a := answers[0]
				answers = answers[1:]
				return a
			},
		})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if len(reasons) != 2 || reasons[0] != NeedPassword || reasons[1] != IncorrectPassword {
			t.Errorf("reasons = %v", reasons)
		}
	})
}
