package cli

import (
	"flag"
	"fmt"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
)

func runAddUser(args []string) int {
	fs := flag.NewFlagSet("add-user", flag.ExitOnError)
	var name, role string
	fs.StringVar(&name, "name", "", "Display name for the user.")
	fs.StringVar(&role, "role", bandsaw.RoleEditor, "User role: superadmin, admin, editor, or readonly.")
	fs.Usage = func() {
		fmt.Println("Usage: bandsaw add-user [options] EMAIL")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	email := fs.Arg(0)
	if !validRole(role) {
		fmt.Printf("Error: Invalid role '%s'\n", role)
		return 1
	}

	password, ok := promptPassword("Password")
	if !ok {
		return 1
	}
	if password == "" {
		fmt.Println("Error: Password cannot be empty")
		return 1
	}

	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	existing, err := db.GetUserByEmail(email)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if existing != nil {
		fmt.Printf("Error: User '%s' already exists\n", email)
		return 1
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	id, err := db.CreateUser(email, hash, name, role)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Created user '%s' (id=%d, role=%s)\n", email, id, role)
	return 0
}

func runAddGroup(args []string) int {
	if len(args) != 1 {
		fmt.Println("Usage: bandsaw add-group NAME")
		return 1
	}
	name := args[0]

	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	existing, err := db.GetGroupByName(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if existing != nil {
		fmt.Printf("Error: Group '%s' already exists\n", name)
		return 1
	}

	id, err := db.CreateGroup(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Created group '%s' (id=%d)\n", name, id)
	return 0
}

// lookupMembership resolves the email and group name pair shared by
// assign-user and remove-user.
func lookupMembership(db *database.DB, email, groupName string) (*bandsaw.User, *bandsaw.Group, bool) {
	user, err := db.GetUserByEmail(email)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil, nil, false
	}
	if user == nil {
		fmt.Printf("Error: User '%s' not found\n", email)
		return nil, nil, false
	}

	group, err := db.GetGroupByName(groupName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil, nil, false
	}
	if group == nil {
		fmt.Printf("Error: Group '%s' not found\n", groupName)
		return nil, nil, false
	}
	return user, group, true
}

func runAssignUser(args []string) int {
	if len(args) != 2 {
		fmt.Println("Usage: bandsaw assign-user EMAIL GROUP")
		return 1
	}

	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	user, group, ok := lookupMembership(db, args[0], args[1])
	if !ok {
		return 1
	}
	if err := db.AssignUserToGroup(user.ID, group.ID); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Assigned '%s' to group '%s'\n", user.Email, group.Name)
	return 0
}

func runRemoveUser(args []string) int {
	if len(args) != 2 {
		fmt.Println("Usage: bandsaw remove-user EMAIL GROUP")
		return 1
	}

	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	user, group, ok := lookupMembership(db, args[0], args[1])
	if !ok {
		return 1
	}
	if err := db.RemoveUserFromGroup(user.ID, group.ID); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Removed '%s' from group '%s'\n", user.Email, group.Name)
	return 0
}

func runListUsers() int {
	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	users, err := db.ListUsers()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if len(users) == 0 {
		fmt.Println("No users.")
		return 0
	}

	for _, u := range users {
		groups, err := db.GroupsForUser(u.ID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		names := make([]string, 0, len(groups))
		for _, g := range groups {
			names = append(names, g.Name)
		}
		namePart := ""
		if u.Name != "" {
			namePart = fmt.Sprintf(" (%s)", u.Name)
		}
		fmt.Printf("  %s%s [%s] — %s\n", u.Email, namePart, u.Role, util.JoinGroupNames(names))
	}
	return 0
}

func runListGroups() int {
	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	groups, err := db.ListGroups()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if len(groups) == 0 {
		fmt.Println("No groups.")
		return 0
	}

	for _, g := range groups {
		fmt.Printf("  %s (id=%d)\n", g.Name, g.ID)
	}
	return 0
}

func runResetDB() int {
	fmt.Println("This will delete ALL data (users, groups, sessions, tracks, songs).")
	if !confirm("Are you sure?") {
		fmt.Println("Aborted.")
		return 0
	}

	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	if err := db.Reset(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Println("Database reset complete.")
	return 0
}

func runResetPassword(args []string) int {
	if len(args) != 1 {
		fmt.Println("Usage: bandsaw reset-password EMAIL")
		return 1
	}
	email := args[0]

	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	user, err := db.GetUserByEmail(email)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if user == nil {
		fmt.Printf("Error: User '%s' not found\n", email)
		return 1
	}

	password, ok := promptPassword("New password")
	if !ok {
		return 1
	}
	if password == "" {
		fmt.Println("Error: Password cannot be empty")
		return 1
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if err := db.UpdateUserPassword(user.ID, hash); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Password updated for '%s'\n", email)
	return 0
}

func runSetRole(args []string) int {
	if len(args) != 2 {
		fmt.Println("Usage: bandsaw set-role EMAIL ROLE")
		return 1
	}
	email, role := args[0], args[1]
	if !validRole(role) {
		fmt.Printf("Error: Invalid role '%s'\n", role)
		return 1
	}

	db, err := openDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	user, err := db.GetUserByEmail(email)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if user == nil {
		fmt.Printf("Error: User '%s' not found\n", email)
		return 1
	}

	if err := db.UpdateUserRole(user.ID, role); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Updated '%s' role to '%s'\n", email, role)
	return 0
}
