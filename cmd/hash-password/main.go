package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/logger"
	"github.com/stemsi/institute-portal/internal/model"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Hash Role Password ===")

	fmt.Print("Enter Role (" + strings.Join(roleNames(), ", ") + "): ")
	roleStr, _ := reader.ReadString('\n')
	role, ok := model.ParseRole(strings.TrimSpace(roleStr))
	if !ok {
		fmt.Println("Error: Unknown role")
		os.Exit(1)
	}

	password, err := readPassword("Enter Password: ")
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if len(password) < 4 {
		fmt.Println("Error: Password must be at least 4 characters")
		os.Exit(1)
	}

	confirm, err := readPassword("Confirm Password: ")
	if err != nil || confirm != password {
		fmt.Println("Error: Passwords do not match")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	fmt.Printf("\nAdd this to the server environment:\n\nCREDENTIAL_%s_HASH=%s\n", strings.ToUpper(string(role)), hash)
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func roleNames() []string {
	names := make([]string, 0, len(model.AllRoles))
	for _, r := range model.AllRoles {
		names = append(names, string(r))
	}
	return names
}
