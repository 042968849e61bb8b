package report

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/compiler"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func compiled(t *testing.T) (*ir.CFG, error) {
	t.Helper()
	b := bc.NewBuilder("one")
	b.OpArg(bc.OpLdConst, sexp.ScalarReal(1))
	b.Op(bc.OpReturn)
	return compiler.Compile(b.MustBuild(), compiler.Options{})
}

func TestSaveLoad(t *testing.T) {
	s := openStore(t)
	g, err := compiled(t)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	run := uuid.New()
	r := New(run, "one.rbc", g, nil)
	if err := s.Save(r); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if r.ID == 0 {
		t.Fatal("Save did not assign an id")
	}

	got, err := s.Load(r.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Run != run || got.Function != "one" || got.Status != StatusOK || got.Blocks != 1 {
		t.Errorf("Load() = %+v", got)
	}
	if got.Fingerprint != g.Fingerprint() {
		t.Errorf("fingerprint = %x, want %x", got.Fingerprint, g.Fingerprint())
	}
	if diff := cmp.Diff(g.History(), got.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if !got.Created.Equal(r.Created) {
		t.Errorf("created = %v, want %v", got.Created, r.Created)
	}
}

func TestLoadNotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.Load(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(42) = %v, want ErrNotFound", err)
	}
}

func TestListAndCounts(t *testing.T) {
	s := openStore(t)
	run, other := uuid.New(), uuid.New()
	g, _ := compiled(t)

	unsupported := &compiler.UnsupportedError{Msg: "SETLOOPVAL"}
	internal := &compiler.InternalError{Msg: "verification failed", Problems: []ir.Problem{
		{Block: 2, Node: 7, Desc: "phi has 1 inputs", History: 3},
	}}
	for _, r := range []*Report{
		New(run, "a", g, nil),
		New(run, "b", g, unsupported),
		New(run, "c", g, internal),
		New(run, "d", g, &compiler.MissingBodyError{Body: "x"}),
		New(other, "e", g, nil),
	} {
		if err := s.Save(r); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	list, err := s.List(run)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var fixtures []string
	for _, r := range list {
		fixtures = append(fixtures, r.Fixture)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, fixtures); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(internal.Problems, list[2].Problems); diff != "" {
		t.Errorf("problems mismatch (-want +got):\n%s", diff)
	}

	counts, err := s.Counts(run)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	want := map[Status]int{StatusOK: 1, StatusUnsupported: 1, StatusInternal: 1, StatusMissingBody: 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("Counts() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{&compiler.UnsupportedError{}, StatusUnsupported},
		{&compiler.MissingBodyError{}, StatusMissingBody},
		{&compiler.InternalError{}, StatusInternal},
		{errors.New("other"), StatusInternal},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
