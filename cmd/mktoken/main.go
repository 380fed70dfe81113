// Command mktoken signs a bearer token for local development and testing.
// Production tokens are issued by the identity provider.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"expense-api/internal/auth"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("mktoken", flag.ContinueOnError)
	fs.SetOutput(stderr)

	userID := fs.Int64("user", 0, "User id to put in the token")
	claim := fs.String("claim", "sub", "Claim carrying the user id (sub or userId)")
	secretFlag := fs.String("secret", "", "Signing secret (defaults to JWT_SECRET, prompts if unset)")
	algFlag := fs.String("alg", "", "Signing algorithm (defaults to JWT_ALGORITHM or HS256)")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime, 0 for no expiry")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *userID <= 0 {
		fmt.Fprintln(stdout, "Usage: mktoken -user <id> [-claim sub|userId] [-secret <secret>] [-alg HS256] [-ttl 24h]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: user")
	}
	if !isUserClaim(*claim) {
		return fmt.Errorf("unsupported claim %q", *claim)
	}

	// Pick up JWT_SECRET and JWT_ALGORITHM from a local .env when present.
	_ = godotenv.Load()

	secret := *secretFlag
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		fmt.Fprint(stderr, "Secret: ")
		var err error
		secret, err = readSecret(stdin)
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		fmt.Fprintln(stderr) // Print newline after secret input
	}
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("secret cannot be empty")
	}

	alg := *algFlag
	if alg == "" {
		alg = os.Getenv("JWT_ALGORITHM")
	}
	if alg == "" {
		alg = "HS256"
	}

	signer, err := auth.NewSigner(secret, alg)
	if err != nil {
		return err
	}

	token, err := signer.SignUser(*claim, *userID, *ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintln(stdout, token)
	return nil
}

func isUserClaim(claim string) bool {
	for _, c := range auth.DefaultUserClaims {
		if c == claim {
			return true
		}
	}
	return false
}

func readSecret(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
