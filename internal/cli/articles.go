package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dittygoops/helpdesk-backend/internal/dto"
	"github.com/dittygoops/helpdesk-backend/internal/model"
)

func (a *App) articleMenu(ctx context.Context) {
	for {
		fmt.Println()
		fmt.Println("1) List articles")
		fmt.Println("2) List by group")
		fmt.Println("3) Search")
		if a.session != nil && a.session.ActiveRole != model.RoleStudent {
			fmt.Println("4) Create article")
			fmt.Println("5) Update article")
			fmt.Println("6) Delete article")
			fmt.Println("7) Manage groups")
		}
		fmt.Println("0) Back")
		switch a.prompt("> ") {
		case "1":
			a.printArticles(ctx, func() ([]*model.Article, error) {
				return a.articles.ListAll(ctx, a.session)
			})
		case "2":
			group := a.prompt("Group name: ")
			a.printArticles(ctx, func() ([]*model.Article, error) {
				return a.articles.ListByGroup(ctx, a.session, group)
			})
		case "3":
			a.searchFlow(ctx)
		case "4":
			a.createArticleFlow(ctx)
		case "5":
			a.updateArticleFlow(ctx)
		case "6":
			a.deleteArticleFlow(ctx)
		case "7":
			a.groupMenu(ctx)
		case "0":
			return
		default:
			fmt.Println("unknown choice")
		}
	}
}

func (a *App) printArticles(ctx context.Context, list func() ([]*model.Article, error)) {
	articles, err := list()
	if err != nil {
		fmt.Println("could not list articles:", err)
		return
	}
	if len(articles) == 0 {
		fmt.Println("no articles visible")
		return
	}
	for _, art := range articles {
		groups, _ := a.articles.GroupsOf(ctx, art.ID)
		fmt.Printf("%s  [%s] %s  groups=%v\n", art.ID, art.Level, art.Title, groups)
	}
}

func (a *App) searchFlow(ctx context.Context) {
	level, err := model.ParseArticleLevel(a.prompt("Level (beginner/intermediate/advanced/expert): "))
	if err != nil {
		fmt.Println(err)
		return
	}
	needle := a.prompt("Title contains: ")
	a.printArticles(ctx, func() ([]*model.Article, error) {
		return a.articles.Search(ctx, a.session, level, needle)
	})
}

func (a *App) readArticleInput() dto.ArticleInput {
	return dto.ArticleInput{
		Level:            a.prompt("Level: "),
		Title:            a.prompt("Title: "),
		ShortDescription: a.prompt("Short description: "),
		Keywords:         splitList(a.prompt("Keywords (comma-separated): ")),
		Body:             a.prompt("Body: "),
		ReferenceLinks:   splitList(a.prompt("Reference links (comma-separated): ")),
		Groups:           splitList(a.prompt("Groups (comma-separated, at least one): ")),
	}
}

func (a *App) createArticleFlow(ctx context.Context) {
	article, err := a.articles.Create(ctx, a.session, a.readArticleInput())
	if err != nil {
		fmt.Println("create failed:", err)
		return
	}
	fmt.Println("created article", article.ID)
}

func (a *App) updateArticleFlow(ctx context.Context) {
	id, err := uuid.Parse(a.prompt("Article id: "))
	if err != nil {
		fmt.Println("bad id:", err)
		return
	}
	if err := a.articles.Update(ctx, a.session, id, a.readArticleInput()); err != nil {
		fmt.Println("update failed:", err)
		return
	}
	fmt.Println("updated")
}

func (a *App) deleteArticleFlow(ctx context.Context) {
	id, err := uuid.Parse(a.prompt("Article id: "))
	if err != nil {
		fmt.Println("bad id:", err)
		return
	}
	if err := a.articles.Delete(ctx, a.session, id); err != nil {
		fmt.Println("delete failed:", err)
		return
	}
	fmt.Println("deleted")
}

func (a *App) groupMenu(ctx context.Context) {
	for {
		fmt.Println()
		fmt.Println("1) List groups")
		fmt.Println("2) Create group")
		fmt.Println("3) Delete group")
		fmt.Println("4) Grant access")
		fmt.Println("5) Revoke access")
		fmt.Println("0) Back")
		switch a.prompt("> ") {
		case "1":
			groups, err := a.articles.ListGroups(ctx)
			if err != nil {
				fmt.Println("could not list groups:", err)
				continue
			}
			for _, g := range groups {
				fmt.Printf("%-30s special=%-5v %s\n", g.Name, g.IsSpecial, g.Description)
			}
		case "2":
			input := dto.GroupInput{
				Name:        a.prompt("Name: "),
				Description: a.prompt("Description: "),
			}
			if _, err := a.articles.CreateGroup(ctx, a.session, input); err != nil {
				fmt.Println("create failed:", err)
			}
		case "3":
			if err := a.articles.DeleteGroup(ctx, a.session, a.prompt("Name: ")); err != nil {
				fmt.Println("delete failed:", err)
			}
		case "4":
			a.grantFlow(ctx)
		case "5":
			a.revokeFlow(ctx)
		case "0":
			return
		default:
			fmt.Println("unknown choice")
		}
	}
}

func (a *App) grantFlow(ctx context.Context) {
	userID, err := uuid.Parse(a.prompt("User id: "))
	if err != nil {
		fmt.Println("bad id:", err)
		return
	}
	group := a.prompt("Group name: ")
	role, err := model.ParseAccessRole(a.prompt("Access role (viewer/editor/admin): "))
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := a.articles.Grant(ctx, a.session, userID, group, role); err != nil {
		fmt.Println("grant failed:", err)
	}
}

func (a *App) revokeFlow(ctx context.Context) {
	userID, err := uuid.Parse(a.prompt("User id: "))
	if err != nil {
		fmt.Println("bad id:", err)
		return
	}
	if err := a.articles.Revoke(ctx, a.session, userID, a.prompt("Group name: ")); err != nil {
		fmt.Println("revoke failed:", err)
	}
}

func (a *App) backupMenu(ctx context.Context) {
	for {
		fmt.Println()
		fmt.Println("1) Backup now")
		fmt.Println("2) Restore from SQL file")
		fmt.Println("0) Back")
		switch a.prompt("> ") {
		case "1":
			sqlPath, jsonPath, err := a.backups.BackupAll(ctx)
			if err != nil {
				fmt.Println("backup failed:", err)
				continue
			}
			fmt.Println("wrote", sqlPath, "and", jsonPath)
		case "2":
			path := a.prompt("Path to .sql file: ")
			if err := a.backups.RestoreFromSQL(ctx, path); err != nil {
				fmt.Println("restore failed:", err)
				continue
			}
			fmt.Println("restore complete")
		case "0":
			return
		default:
			fmt.Println("unknown choice")
		}
	}
}
