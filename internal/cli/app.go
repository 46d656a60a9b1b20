// Package cli is the interactive console front end. It owns all prompt text
// and input parsing and only talks to the services; no business logic lives
// here.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/internal/service"
)

type App struct {
	directory *service.DirectoryService
	articles  *service.ArticleService
	backups   *service.BackupService
	sessions  *service.SessionManager
	reader    *bufio.Reader

	user    *model.User
	session *service.Session
}

func NewApp(directory *service.DirectoryService, articles *service.ArticleService, backups *service.BackupService, sessions *service.SessionManager) *App {
	return &App{
		directory: directory,
		articles:  articles,
		backups:   backups,
		sessions:  sessions,
		reader:    bufio.NewReader(os.Stdin),
	}
}

func (a *App) Run(ctx context.Context) {
	for {
		fmt.Println()
		fmt.Println("1) Log in")
		fmt.Println("2) Redeem invitation code")
		fmt.Println("3) Exit")
		switch a.prompt("> ") {
		case "1":
			a.loginFlow(ctx)
		case "2":
			a.redeemFlow(ctx)
		case "3":
			return
		default:
			fmt.Println("unknown choice")
		}
	}
}

func (a *App) prompt(label string) string {
	fmt.Print(label)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func (a *App) promptPassword(label string) string {
	fmt.Print(label)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(pw)
}

// selectRole resolves a multi-role login to exactly one active role for the
// rest of the session. Changing it requires logging in again.
func (a *App) selectRole(user *model.User) model.Role {
	roles := user.Roles().Roles()
	if len(roles) == 1 {
		return roles[0]
	}
	for {
		fmt.Println("Select a role for this session:")
		for i, r := range roles {
			fmt.Printf("%d) %s\n", i+1, r)
		}
		choice := a.prompt("> ")
		for i, r := range roles {
			if choice == fmt.Sprintf("%d", i+1) {
				return r
			}
		}
		fmt.Println("unknown choice")
	}
}
