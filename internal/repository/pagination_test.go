package repository

import "testing"

func TestNewPageDefaults(t *testing.T) {
	p := NewPage(0, 0)
	if p.Number != 1 || p.Limit != 20 {
		t.Fatalf("expected page=1 limit=20, got %+v", p)
	}
}

func TestNewPageClampsLimitTo100(t *testing.T) {
	p := NewPage(3, 500)
	if p.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", p.Limit)
	}
}

func TestNewPageRejectsNegativePage(t *testing.T) {
	p := NewPage(-5, 10)
	if p.Number != 1 {
		t.Fatalf("expected page floored to 1, got %d", p.Number)
	}
}

func TestPageOffset(t *testing.T) {
	p := NewPage(3, 20)
	if got := p.Offset(); got != 40 {
		t.Fatalf("expected offset 40, got %d", got)
	}
}
