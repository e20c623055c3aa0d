package snapshot_test

import (
	"errors"
	"testing"

	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/types"
)

func validSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		TotalSupply: types.NewAmount(100),
		Balances: map[types.AccountID]types.Amount{
			"alice": types.NewAmount(60),
			"bob":   types.NewAmount(40),
		},
		Allowances: []snapshot.Allowance{
			{Owner: "bob", Spender: "carol", Value: types.NewAmount(5)},
			{Owner: "alice", Spender: "bob", Value: types.NewAmount(10)},
		},
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *snapshot.Snapshot)
		wantErr bool
	}{
		{"valid", func(*snapshot.Snapshot) {}, false},
		{"supply mismatch", func(s *snapshot.Snapshot) { s.TotalSupply = types.NewAmount(99) }, true},
		{"zero entry", func(s *snapshot.Snapshot) { s.Balances["dave"] = types.Zero() }, true},
		{"overflow", func(s *snapshot.Snapshot) { s.Balances["dave"] = types.MaxAmount() }, true},
		{"duplicate allowance", func(s *snapshot.Snapshot) {
			s.Allowances = append(s.Allowances, s.Allowances[0])
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSnapshot()
			tt.mutate(s)
			err := s.Verify()
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyMismatchIsClassified(t *testing.T) {
	s := validSnapshot()
	s.TotalSupply = types.NewAmount(1)
	if err := s.Verify(); !errors.Is(err, snapshot.ErrSupplyMismatch) {
		t.Errorf("got %v, want ErrSupplyMismatch", err)
	}
}

func TestClone(t *testing.T) {
	s := validSnapshot()
	c := s.Clone()
	c.Balances["alice"] = types.NewAmount(1)
	c.Allowances[0].Value = types.NewAmount(0)

	if !s.Balances["alice"].Equal(types.NewAmount(60)) {
		t.Error("clone shares the balances map")
	}
	if !s.Allowances[0].Value.Equal(types.NewAmount(5)) {
		t.Error("clone shares the allowances slice")
	}
}

func TestSortAllowances(t *testing.T) {
	s := validSnapshot()
	s.SortAllowances()
	if s.Allowances[0].Owner != "alice" {
		t.Errorf("got first owner %q, want alice", s.Allowances[0].Owner)
	}
}
