package main

import (
	"fmt"
	"os"

	"github.com/teamgrid/server-go/internal/service"
)

// Generates a bcrypt hash suitable for seeding user rows by hand.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-password.go <password>\n")
		os.Exit(1)
	}

	password := os.Args[1]
	policy := service.NewPasswordPolicy(12)

	if ok, reason := policy.ValidateStrength(password); !ok {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", reason)
	}

	hash, err := policy.Hash(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
