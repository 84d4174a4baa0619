package records

import (
	"fmt"
	"sort"
	"time"
)

// Filter keeps the items whose data matches by. See Match.
func (s *Store) Filter(by any, mode MatchMode) {
	s.filter = func(item Item) bool {
		return Match(item.ItemData(), by, mode)
	}
	s.Update()
}

// FilterFunc keeps the items fn accepts.
func (s *Store) FilterFunc(fn func(Item) bool) {
	s.filter = fn
	s.Update()
}

// FilterExpr keeps the items for which expression evaluates to true. Item
// fields are bound as variables and under "item". Evaluation errors and
// non-boolean results exclude the item and are reported to the model's
// evaluator logger.
func (s *Store) FilterExpr(expression string) error {
	evaluator := s.model.filterEvaluator()
	if evaluator == nil {
		return ErrNoEvaluator
	}
	rule, err := evaluator.Compile(expression, WithVariables(s.fieldNames()...))
	if err != nil {
		return err
	}
	engine := evaluatorEngineName(evaluator)
	logger := s.model.evalLogger
	scope := s.model.Type
	s.filter = func(item Item) bool {
		started := time.Now()
		out, err := rule.Evaluate(RuleContext{Data: item.ItemData(), Scope: scope})
		if err == nil {
			if b, ok := out.(bool); ok {
				return b
			}
			err = fmt.Errorf("records: filter expression returned %T, want bool", out)
		}
		logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     expression,
			Scope:    scope,
			Duration: time.Since(started),
			Err:      err,
		})
		return false
	}
	s.Update()
	return nil
}

// ClearFilter drops the active filter.
func (s *Store) ClearFilter() {
	if s.filter == nil {
		return
	}
	s.filter = nil
	s.Update()
}

// Sort orders the view by field.
func (s *Store) Sort(field string, dir SortDir) {
	s.SortFunc(FieldComparator(field), dir)
}

// SortFunc orders the view with cmp.
func (s *Store) SortFunc(cmp CompareFunc, dir SortDir) {
	s.sortCmp = cmp
	s.sortDir = dir
	s.Update()
}

// ClearSort restores insertion order.
func (s *Store) ClearSort() {
	if s.sortCmp == nil {
		return
	}
	s.sortCmp = nil
	s.Update()
}

func (s *Store) IsFiltered() bool { return s.filter != nil }
func (s *Store) IsSorted() bool   { return s.sortCmp != nil }

// Update re-derives the view from the items, the filter and the sort, then
// emits update. It is the only writer of the view.
func (s *Store) Update() {
	view := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if s.filter == nil || s.filter(item) {
			view = append(view, item)
		}
	}
	if s.sortCmp != nil {
		sortItems(view, s.sortCmp, s.sortDir)
	}
	byID := make(map[string]Item, len(view))
	for _, item := range view {
		if id := item.ItemID(); id != "" {
			byID[id] = item
		}
	}
	s.current = view
	s.currentByID = byID
	s.bus.Trigger(Event{Name: EventUpdate, Store: s})
}

func (s *Store) fieldNames() []string {
	seen := map[string]struct{}{}
	for _, item := range s.items {
		for key := range item.ItemData() {
			seen[key] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for key := range seen {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}
