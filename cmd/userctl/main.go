package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"golang.org/x/term"

	"homedrive/internal/database"
)

const defaultDatabaseDir = "/database"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "homedrive.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ok := true
	switch command {
	case "adduser":
		ok = addUser(db, os.Args[2:])
	case "passwd":
		ok = changePassword(db, os.Args[2:])
	case "setquota":
		ok = setQuota(db, os.Args[2:])
	case "list":
		ok = listUsers(db)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", command)
		printUsage()
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Homedrive User Management")
	fmt.Println("")
	fmt.Println("Usage: userctl <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  adduser <username> [quota-bytes]  - Create a user (quota -1 = unlimited)")
	fmt.Println("  passwd <username>                 - Reset a user's password")
	fmt.Println("  setquota <username> <bytes>       - Set a user's quota limit")
	fmt.Println("  list                              - List accounts and quotas")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

// promptPassword reads and confirms a password without echoing it.
func promptPassword() (string, bool) {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return "", false
	}

	fmt.Print("Confirm Password: ")
	confirm, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return "", false
	}

	if !bytes.Equal(password, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Passwords do not match")
		return "", false
	}
	if len(password) < 6 {
		fmt.Fprintln(os.Stderr, "Error: Password must be at least 6 characters")
		return "", false
	}
	return string(password), true
}

func addUser(db *database.Database, args []string) bool {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: userctl adduser <username> [quota-bytes]")
		return false
	}
	username := args[0]

	quotaLimit := int64(-1)
	if len(args) > 1 {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid quota %q\n", args[1])
			return false
		}
		quotaLimit = n
	}

	password, ok := promptPassword()
	if !ok {
		return false
	}

	if err := db.CreateUser(username, password, quotaLimit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create user: %v\n", err)
		return false
	}

	fmt.Printf("User %s created.\n", username)
	return true
}

func changePassword(db *database.Database, args []string) bool {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: userctl passwd <username>")
		return false
	}
	username := args[0]

	if _, err := db.GetUser(username); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	password, ok := promptPassword()
	if !ok {
		return false
	}

	if err := db.UpdatePassword(username, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to update password: %v\n", err)
		return false
	}

	fmt.Println("Password updated successfully.")
	return true
}

func setQuota(db *database.Database, args []string) bool {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: userctl setquota <username> <bytes>")
		return false
	}
	username := args[0]

	quotaLimit, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid quota %q\n", args[1])
		return false
	}

	if err := db.SetUserQuota(username, quotaLimit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to set quota: %v\n", err)
		return false
	}

	fmt.Printf("Quota for %s set to %d.\n", username, quotaLimit)
	return true
}

func listUsers(db *database.Database) bool {
	users, err := db.ListUsers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list users: %v\n", err)
		return false
	}

	if len(users) == 0 {
		fmt.Println("No users configured.")
		return true
	}

	fmt.Printf("%-20s %-16s %s\n", "USERNAME", "QUOTA", "CREATED")
	for _, u := range users {
		quota := "unlimited"
		if u.QuotaLimit >= 0 {
			quota = strconv.FormatInt(u.QuotaLimit, 10)
		}
		fmt.Printf("%-20s %-16s %s\n", u.Username, quota, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return true
}
