// Package cli implements the bandsaw command line: uploading recordings
// to a remote server and administering the local database directly.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
)

// Run executes the subcommand named by args[0] and returns the process
// exit code. The "serve" command is handled in main, not here.
func Run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	switch args[0] {
	case "upload":
		return runUpload(args[1:])
	case "add-user":
		return runAddUser(args[1:])
	case "add-group":
		return runAddGroup(args[1:])
	case "assign-user":
		return runAssignUser(args[1:])
	case "remove-user":
		return runRemoveUser(args[1:])
	case "list-users":
		return runListUsers()
	case "list-groups":
		return runListGroups()
	case "reset-db":
		return runResetDB()
	case "reset-password":
		return runResetPassword(args[1:])
	case "set-role":
		return runSetRole(args[1:])
	case "seed-demo":
		return runSeedDemo()
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Printf("Unknown command '%s'\n\n", args[0])
		usage()
		return 1
	}
}

func usage() {
	fmt.Println("Usage: bandsaw COMMAND [OPTIONS] [ARGS...]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                      Start the API server")
	fmt.Println("  upload FILE                Upload a recording to a remote server for processing")
	fmt.Println("  add-user EMAIL             Create a user (prompts for password)")
	fmt.Println("  add-group NAME             Create a group")
	fmt.Println("  assign-user EMAIL GROUP    Add a user to a group")
	fmt.Println("  remove-user EMAIL GROUP    Remove a user from a group")
	fmt.Println("  list-users                 List users and their group memberships")
	fmt.Println("  list-groups                List groups")
	fmt.Println("  reset-db                   Clear all data (with confirmation)")
	fmt.Println("  reset-password EMAIL       Reset a user's password")
	fmt.Println("  set-role EMAIL ROLE        Set a user's role")
	fmt.Println("  seed-demo                  Reset and fill the database with demo data")
	fmt.Println()
	fmt.Println("Run 'bandsaw COMMAND -h' for command options.")
}

// ApplyServeFlags folds serve's command line options into the
// environment before the config loads.
func ApplyServeFlags(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("p", 0, "Port (default: JAM_PORT or 8000).")
	fs.IntVar(port, "port", 0, "Port (default: JAM_PORT or 8000).")
	fs.Usage = func() {
		fmt.Println("Usage: bandsaw serve [options]")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return
	}
	if *port > 0 {
		os.Setenv("JAM_PORT", strconv.Itoa(*port))
	}
}

// openDB loads the configuration and opens the local database. The
// logger is silenced so command output stays clean.
func openDB() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.Open(cfg.DBPath, zap.NewNop().Sugar())
}

func validRole(role string) bool {
	switch role {
	case bandsaw.RoleSuperadmin, bandsaw.RoleAdmin, bandsaw.RoleEditor, bandsaw.RoleReadonly:
		return true
	}
	return false
}

// promptPassword reads a hidden password twice. The empty string is
// returned as-is so callers can reject it with their own message.
func promptPassword(label string) (string, bool) {
	pw, err := readline.Password(label + ": ")
	if err != nil {
		fmt.Println("Error: Could not read password")
		return "", false
	}
	confirm, err := readline.Password("Repeat for confirmation: ")
	if err != nil {
		fmt.Println("Error: Could not read password")
		return "", false
	}
	if string(pw) != string(confirm) {
		fmt.Println("Error: Passwords do not match")
		return "", false
	}
	return string(pw), true
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(question string) bool {
	line, err := readline.Line(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
