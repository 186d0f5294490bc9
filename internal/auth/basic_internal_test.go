package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewBasicAuthenticator_DecoyMatchesHighestCost(t *testing.T) {
	tests := []struct {
		name     string
		costs    []int
		wantCost int
	}{
		{name: "single user", costs: []int{bcrypt.MinCost + 1}, wantCost: bcrypt.MinCost + 1},
		{name: "mixed costs", costs: []int{bcrypt.MinCost, bcrypt.MinCost + 2}, wantCost: bcrypt.MinCost + 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			config := ""
			for i, cost := range tt.costs {
				hash, err := bcrypt.GenerateFromPassword([]byte("secret"), cost)
				if err != nil {
					t.Fatalf("failed to generate bcrypt hash: %v", err)
				}
				if i > 0 {
					config += ","
				}
				config += string(rune('a'+i)) + "-user:" + string(hash)
			}

			// Act
			a, err := NewBasicAuthenticator(config)

			// Assert
			if err != nil {
				t.Fatalf("NewBasicAuthenticator() error = %v", err)
			}
			got, err := bcrypt.Cost(a.decoy)
			if err != nil {
				t.Fatalf("decoy is not a bcrypt hash: %v", err)
			}
			if got != tt.wantCost {
				t.Errorf("decoy cost = %d, want %d", got, tt.wantCost)
			}
		})
	}
}
