package search

import "testing"

func TestBuildBoardFilter(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"unrestricted", Query{}, ""},
		{"explicit board", Query{FilterBoardID: "brd_1"}, `boardId = "brd_1"`},
		{"explicit board wins over scope", Query{FilterBoardID: "brd_1", BoardIDs: []string{"brd_2"}}, `boardId = "brd_1"`},
		{"no visible boards", Query{BoardIDs: []string{}}, `boardId = "__none__"`},
		{"scoped", Query{BoardIDs: []string{"brd_1", "brd_2"}}, `boardId IN ["brd_1", "brd_2"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildBoardFilter(tt.q); got != tt.want {
				t.Errorf("buildBoardFilter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScopeResults(t *testing.T) {
	results := []Result{
		{Type: ResultCard, ID: "crd_1", BoardID: "brd_1"},
		{Type: ResultCard, ID: "crd_2", BoardID: "brd_2"},
		{Type: ResultBoard, ID: "brd_1", BoardID: "brd_1"},
	}

	// nil scope leaves everything.
	if got := scopeResults(results, Query{}); len(got) != 3 {
		t.Errorf("unrestricted: %d results, want 3", len(got))
	}

	// Scoped drops hits from other boards, board hits included.
	got := scopeResults(results, Query{BoardIDs: []string{"brd_1"}})
	if len(got) != 2 {
		t.Fatalf("scoped: %d results, want 2", len(got))
	}
	for _, r := range got {
		if r.BoardID != "brd_1" {
			t.Errorf("leaked result %s from board %s", r.ID, r.BoardID)
		}
	}

	// Empty scope drops everything.
	if got := scopeResults(results, Query{BoardIDs: []string{}}); len(got) != 0 {
		t.Errorf("empty scope: %d results, want 0", len(got))
	}
}

func TestIndexToResultType(t *testing.T) {
	if got := indexToResultType(idxCards); got != ResultCard {
		t.Errorf("got %s, want card", got)
	}
	if got := indexToResultType("unknown"); got != "" {
		t.Errorf("got %s, want empty", got)
	}
}
