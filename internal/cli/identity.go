package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dittygoops/helpdesk-backend/internal/dto"
	"github.com/dittygoops/helpdesk-backend/internal/model"
)

func (a *App) loginFlow(ctx context.Context) {
	input := dto.LoginInput{
		Username: a.prompt("Username: "),
		Password: a.promptPassword("Password: "),
	}
	user, err := a.directory.Login(ctx, input)
	if err != nil {
		fmt.Println("login failed:", err)
		return
	}
	if user.OTPPending {
		fmt.Println("A reset code is pending for this account; redeem it to set a new password.")
	}

	role := a.selectRole(user)
	token, err := a.sessions.Start(ctx, user, role)
	if err != nil {
		fmt.Println("could not start session:", err)
		return
	}
	sess, err := a.sessions.Resolve(ctx, token)
	if err != nil {
		fmt.Println("could not resolve session:", err)
		return
	}
	a.user = user
	a.session = sess
	fmt.Printf("Welcome %s (acting as %s)\n", user.DisplayName(), role)

	a.mainMenu(ctx)

	a.sessions.End(ctx, user.ID)
	a.user = nil
	a.session = nil
}

func (a *App) redeemFlow(ctx context.Context) {
	input := dto.RegisterInput{
		Code:      a.prompt("Invitation code: "),
		Email:     a.prompt("Email: "),
		Username:  a.prompt("Choose a username: "),
		Password:  a.promptPassword("Choose a password: "),
		FirstName: a.prompt("First name: "),
		LastName:  a.prompt("Last name: "),
	}
	user, err := a.directory.CompleteRegistration(ctx, input)
	if err != nil {
		fmt.Println("registration failed:", err)
		return
	}
	fmt.Printf("Account created for %s with roles %s; log in to continue.\n", user.Username, user.Roles())
}

func (a *App) inviteFlow(ctx context.Context) {
	input := dto.InviteInput{
		Email: a.prompt("Target email: "),
		Roles: splitList(a.prompt("Roles (comma-separated from admin,instructor,student): ")),
	}
	code, err := a.directory.Invite(ctx, a.user, input)
	if err != nil {
		fmt.Println("invite failed:", err)
		return
	}
	fmt.Println("Invitation code (deliver out of band):", code)
}

func (a *App) resetFlow(ctx context.Context) {
	input := dto.ResetInput{
		Username: a.prompt("Username: "),
		Email:    a.prompt("Email: "),
	}
	code, err := a.directory.Reset(ctx, a.user, input)
	if err != nil {
		fmt.Println("reset failed:", err)
		return
	}
	fmt.Println("Reset code (deliver out of band):", code)
}

func (a *App) listUsers(ctx context.Context) {
	users, err := a.directory.ListUsers(ctx, a.user)
	if err != nil {
		fmt.Println("could not list users:", err)
		return
	}
	for _, u := range users {
		state := "active"
		if u.OTPPending {
			state = "otp pending"
		}
		fmt.Printf("%-20s %-30s roles=%-30s %s\n", u.Username, u.Email, u.Roles(), state)
	}
}

func (a *App) deleteUserFlow(ctx context.Context) {
	username := a.prompt("Username to delete: ")
	email := a.prompt("Email: ")
	if a.prompt("Type 'yes' to confirm: ") != "yes" {
		fmt.Println("aborted")
		return
	}
	if err := a.directory.DeleteUser(ctx, a.user, username, email); err != nil {
		fmt.Println("delete failed:", err)
		return
	}
	fmt.Println("deleted")
}

func (a *App) mainMenu(ctx context.Context) {
	for {
		fmt.Println()
		fmt.Println("1) Articles")
		if a.session != nil && a.session.ActiveRole == model.RoleAdmin {
			fmt.Println("2) Invite user")
			fmt.Println("3) Reset user")
			fmt.Println("4) List users")
			fmt.Println("5) Delete user")
			fmt.Println("6) Backup / restore")
		}
		fmt.Println("0) Log out")
		switch a.prompt("> ") {
		case "1":
			a.articleMenu(ctx)
		case "2":
			a.inviteFlow(ctx)
		case "3":
			a.resetFlow(ctx)
		case "4":
			a.listUsers(ctx)
		case "5":
			a.deleteUserFlow(ctx)
		case "6":
			a.backupMenu(ctx)
		case "0":
			return
		default:
			fmt.Println("unknown choice")
		}
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
