package entity

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to PostStatus
		want     bool
	}{
		{PostStatusDraft, PostStatusPending, true},
		{PostStatusDraft, PostStatusPublished, false},
		{PostStatusPending, PostStatusApproved, true},
		{PostStatusPending, PostStatusRejected, true},
		{PostStatusApproved, PostStatusScheduled, true},
		{PostStatusApproved, PostStatusPublishing, true},
		{PostStatusApproved, PostStatusPublished, false},
		{PostStatusScheduled, PostStatusScheduled, true},
		{PostStatusScheduled, PostStatusPublishing, true},
		{PostStatusPublishing, PostStatusPublished, true},
		{PostStatusPublishing, PostStatusFailed, true},
		{PostStatusPublishing, PostStatusDraft, false},
		{PostStatusFailed, PostStatusDraft, true},
		{PostStatusFailed, PostStatusPending, true},
		{PostStatusFailed, PostStatusPublishing, false},
		{PostStatusRejected, PostStatusPending, true},
		{PostStatusPublished, PostStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPublishedIsTerminal(t *testing.T) {
	for _, s := range AllPostStatuses() {
		if CanTransition(PostStatusPublished, s) {
			t.Errorf("published must be terminal, allows %s", s)
		}
	}
	if !PostStatusPublished.IsTerminal() {
		t.Error("published should report terminal")
	}
}

func TestTransitionTo_PublishedAtInvariant(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	p := &Post{Status: PostStatusApproved}

	if err := p.TransitionTo(PostStatusPublishing, now); err != nil {
		t.Fatalf("approved -> publishing: %v", err)
	}
	if p.PublishedAt != nil {
		t.Fatal("published_at must be empty while publishing")
	}

	if err := p.MarkPublished(DeliveryPartial, now); err != nil {
		t.Fatalf("publishing -> published: %v", err)
	}
	if p.PublishedAt == nil || !p.PublishedAt.Equal(now) {
		t.Fatalf("published_at = %v, want %v", p.PublishedAt, now)
	}
	if p.Delivery != DeliveryPartial {
		t.Errorf("delivery = %q, want partial", p.Delivery)
	}

	err := p.TransitionTo(PostStatusDraft, now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("published -> draft error = %v, want ErrInvalidTransition", err)
	}
	if p.Status != PostStatusPublished {
		t.Errorf("status changed on rejected transition: %s", p.Status)
	}
}

func TestTransitionTo_ClearsDeliveryOnFailure(t *testing.T) {
	p := &Post{Status: PostStatusPublishing, Delivery: DeliveryFull}
	if err := p.TransitionTo(PostStatusFailed, time.Now()); err != nil {
		t.Fatal(err)
	}
	if p.Delivery != DeliveryNone || p.PublishedAt != nil {
		t.Errorf("failed post carries delivery=%q published_at=%v", p.Delivery, p.PublishedAt)
	}
}

func TestContentFor(t *testing.T) {
	p := &Post{Content: "base", ContentTelegram: "tg", ContentVK: "  "}

	if got := p.ContentFor(PlatformTelegram); got != "tg" {
		t.Errorf("telegram content = %q", got)
	}
	if got := p.ContentFor(PlatformVK); got != "base" {
		t.Errorf("blank vk override should fall back, got %q", got)
	}
	if got := p.ContentFor("other"); got != "base" {
		t.Errorf("unknown platform content = %q", got)
	}
}

func TestNormalizePlatforms(t *testing.T) {
	got, err := NormalizePlatforms([]string{" Telegram", "vk", "telegram", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "telegram" || got[1] != "vk" {
		t.Errorf("NormalizePlatforms = %v", got)
	}

	if _, err := NormalizePlatforms([]string{"instagram"}); !errors.Is(err, ErrInvalidPlatform) {
		t.Errorf("unknown platform error = %v", err)
	}
}

func TestPostValidate(t *testing.T) {
	valid := Post{Title: "t", Content: "c", Category: CategoryTip, Status: PostStatusDraft}

	tests := []struct {
		name   string
		mutate func(p *Post)
		want   error
	}{
		{"valid", func(p *Post) {}, nil},
		{"empty title", func(p *Post) { p.Title = " " }, ErrEmptyTitle},
		{"empty content", func(p *Post) { p.Content = "" }, ErrEmptyContent},
		{"bad category", func(p *Post) { p.Category = "blog" }, ErrInvalidCategory},
		{"bad platform", func(p *Post) { p.Platforms = []string{"ok"} }, ErrInvalidPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScheduleSlotNext(t *testing.T) {
	// Wednesday
	from := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		slot ScheduleSlot
		want time.Time
	}{
		{"later same day", ScheduleSlot{DayOfWeek: 2, TimeOfDay: "18:30"}, time.Date(2026, 10, 14, 18, 30, 0, 0, time.UTC)},
		{"earlier same day", ScheduleSlot{DayOfWeek: 2, TimeOfDay: "10:00"}, time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC)},
		{"exactly now", ScheduleSlot{DayOfWeek: 2, TimeOfDay: "12:00"}, time.Date(2026, 10, 21, 12, 0, 0, 0, time.UTC)},
		{"monday", ScheduleSlot{DayOfWeek: 0, TimeOfDay: "09:00"}, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
		{"sunday", ScheduleSlot{DayOfWeek: 6, TimeOfDay: "20:00"}, time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.slot.Next(from)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextSlotTimes(t *testing.T) {
	from := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	slots := []ScheduleSlot{
		{ID: "a", DayOfWeek: 4, TimeOfDay: "10:00", IsActive: true},
		{ID: "b", DayOfWeek: 2, TimeOfDay: "18:00", IsActive: true},
		{ID: "c", DayOfWeek: 3, TimeOfDay: "10:00", IsActive: false},
		{ID: "d", DayOfWeek: 3, TimeOfDay: "bad", IsActive: true},
	}

	got := NextSlotTimes(slots, from, 3)
	if len(got) != 3 {
		t.Fatalf("got %d slot times, want 3", len(got))
	}
	wantIDs := []string{"b", "a", "b"}
	for i, st := range got {
		if st.Slot.ID != wantIDs[i] {
			t.Errorf("slot %d = %s, want %s", i, st.Slot.ID, wantIDs[i])
		}
		if i > 0 && st.At.Before(got[i-1].At) {
			t.Errorf("slot times not sorted at %d", i)
		}
	}
}
