package schedule

import (
	"context"
	"strings"
	"sync"
)

// fakePage records what the reconciler does to the page. Confirm answers are
// taken from answers in order; an exhausted list answers no.
type fakePage struct {
	mu sync.Mutex

	items   []CalendarItem
	added   []string
	removed []string
	renders int

	answers     []bool
	questions   []string
	notices     []string
	navigations []string
	prefills    []string
	friends     [][]FriendToggle
}

func (p *fakePage) AddItem(item CalendarItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, item)
	p.added = append(p.added, item.Id)
}

func (p *fakePage) RemoveItem(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.items[:0]
	for _, item := range p.items {
		if item.Id != id {
			kept = append(kept, item)
		}
	}
	p.items = kept
	p.removed = append(p.removed, id)
}

func (p *fakePage) Items() []CalendarItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CalendarItem(nil), p.items...)
}

func (p *fakePage) Render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders++
}

func (p *fakePage) Confirm(ctx context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.questions = append(p.questions, question)
	if len(p.answers) == 0 {
		return false, nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *fakePage) Notify(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, message)
}

func (p *fakePage) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, path)
}

func (p *fakePage) PrefillDate(date string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefills = append(p.prefills, date)
}

func (p *fakePage) ShowFriends(friends []FriendToggle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.friends = append(p.friends, friends)
}

func (p *fakePage) answer(answers ...bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers = append(p.answers, answers...)
}

func (p *fakePage) lastFriends() []FriendToggle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.friends) == 0 {
		return nil
	}
	return p.friends[len(p.friends)-1]
}

func (p *fakePage) resetLog() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = nil
	p.removed = nil
}

func (p *fakePage) titles() []string {
	titles := make([]string, 0)
	for _, item := range p.Items() {
		titles = append(titles, item.Title)
	}
	return titles
}

func (p *fakePage) itemsOf(kind Kind) []CalendarItem {
	found := make([]CalendarItem, 0)
	for _, item := range p.Items() {
		if item.Meta.Kind == kind {
			found = append(found, item)
		}
	}
	return found
}

// itemTitled returns the earliest item with the given title.
func (p *fakePage) itemTitled(title string) (CalendarItem, bool) {
	var found CalendarItem
	ok := false
	for _, item := range p.Items() {
		if item.Title != title && !strings.HasSuffix(item.Title, ": "+title) {
			continue
		}
		if !ok || item.Start.Before(found.Start) {
			found, ok = item, true
		}
	}
	return found, ok
}
