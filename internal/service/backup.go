package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

const backupTimestampLayout = "2006-01-02_15-04-05"

// BackupService serializes the article-domain tables to a SQL dump and a JSON
// document, and replays SQL dumps transactionally. It reads and writes the
// tables directly, bypassing the repositories, and owns the escaping of every
// string it embeds into SQL literals; callers must not re-escape.
type BackupService struct {
	db  *gorm.DB
	dir string
	log logging.Logger
	now func() time.Time
}

func NewBackupService(db *gorm.DB, dir string, log logging.Logger) *BackupService {
	return &BackupService{db: db, dir: dir, log: log, now: time.Now}
}

type articleDocument struct {
	model.Article
	Groups []string `json:"groups"`
}

type backupDocument struct {
	Groups           []model.Group           `json:"groups"`
	Articles         []articleDocument       `json:"articles"`
	GroupPermissions []model.GroupPermission `json:"group_permissions"`
}

// BackupAll writes two parallel serializations of the relational state under
// the backup directory, creating it if absent. The SQL dump is one INSERT per
// line in foreign-key order (groups, articles, article_groups,
// group_permissions); the JSON document denormalizes each article with its
// group names. Both filenames carry the same timestamp suffix.
func (s *BackupService) BackupAll(ctx context.Context) (sqlPath, jsonPath string, err error) {
	var (
		groups        []model.Group
		articles      []model.Article
		articleGroups []model.ArticleGroup
		permissions   []model.GroupPermission
	)
	db := s.db.WithContext(ctx)
	if err := db.Order("name").Find(&groups).Error; err != nil {
		return "", "", fmt.Errorf("%w: reading groups: %s", apperror.ErrBackupIO, err)
	}
	if err := db.Order("id").Find(&articles).Error; err != nil {
		return "", "", fmt.Errorf("%w: reading articles: %s", apperror.ErrBackupIO, err)
	}
	if err := db.Order("article_id").Order("group_name").Find(&articleGroups).Error; err != nil {
		return "", "", fmt.Errorf("%w: reading article_groups: %s", apperror.ErrBackupIO, err)
	}
	if err := db.Order("user_id").Order("group_name").Find(&permissions).Error; err != nil {
		return "", "", fmt.Errorf("%w: reading group_permissions: %s", apperror.ErrBackupIO, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: %s", apperror.ErrBackupIO, err)
	}
	stamp := s.now().Format(backupTimestampLayout)
	sqlPath = filepath.Join(s.dir, "backup_"+stamp+".sql")
	jsonPath = filepath.Join(s.dir, "backup_"+stamp+".json")

	var dump strings.Builder
	fmt.Fprintf(&dump, "-- helpdesk backup %s\n", stamp)
	for _, g := range groups {
		fmt.Fprintf(&dump, "INSERT INTO groups (name, description, is_special) VALUES (%s, %s, %s);\n",
			sqlQuote(g.Name), sqlQuote(g.Description), sqlBool(g.IsSpecial))
	}
	for _, a := range articles {
		fmt.Fprintf(&dump, "INSERT INTO articles (id, level, title, short_description, keywords, body, reference_links) VALUES (%s, %s, %s, %s, %s, %s, %s);\n",
			sqlQuote(a.ID.String()), sqlQuote(string(a.Level)), sqlQuote(a.Title),
			sqlQuote(a.ShortDescription), sqlList(a.Keywords), sqlQuote(a.Body), sqlList(a.ReferenceLinks))
	}
	for _, ag := range articleGroups {
		fmt.Fprintf(&dump, "INSERT INTO article_groups (article_id, group_name) VALUES (%s, %s);\n",
			sqlQuote(ag.ArticleID.String()), sqlQuote(ag.GroupName))
	}
	for _, p := range permissions {
		fmt.Fprintf(&dump, "INSERT INTO group_permissions (user_id, group_name, access_role) VALUES (%s, %s, %s);\n",
			sqlQuote(p.UserID.String()), sqlQuote(p.GroupName), sqlQuote(string(p.AccessRole)))
	}
	if err := os.WriteFile(sqlPath, []byte(dump.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("%w: %s", apperror.ErrBackupIO, err)
	}

	doc := backupDocument{
		Groups:           groups,
		Articles:         make([]articleDocument, 0, len(articles)),
		GroupPermissions: permissions,
	}
	byArticle := map[string][]string{}
	for _, ag := range articleGroups {
		key := ag.ArticleID.String()
		byArticle[key] = append(byArticle[key], ag.GroupName)
	}
	for _, a := range articles {
		doc.Articles = append(doc.Articles, articleDocument{Article: a, Groups: byArticle[a.ID.String()]})
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", apperror.ErrBackupIO, err)
	}
	if err := os.WriteFile(jsonPath, encoded, 0o644); err != nil {
		return "", "", fmt.Errorf("%w: %s", apperror.ErrBackupIO, err)
	}

	s.log.Info(ctx, "backup written", "sql", sqlPath, "json", jsonPath)
	return sqlPath, jsonPath, nil
}

// RestoreFromSQL replays a dump inside one all-or-nothing transaction.
// Comments and blank stretches are skipped. Any failing statement rolls back
// the whole restore and the store is left untouched.
func (s *BackupService) RestoreFromSQL(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s", apperror.ErrRestoreFailed, err)
	}

	statements := splitStatements(string(data))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, stmt := range statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "restore rolled back", "file", path, "error", err)
		return fmt.Errorf("%w: %s", apperror.ErrRestoreFailed, err)
	}
	s.log.Info(ctx, "restore complete", "file", path, "statements", len(statements))
	return nil
}

// sqlQuote embeds s into a single-quoted SQL literal by doubling quotes.
// sqlite and postgres (standard_conforming_strings) read backslashes
// literally, so escaping them would come back doubled after a restore.
func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, `'`, `''`) + "'"
}

// splitStatements cuts a dump into statements on semicolons outside string
// literals, so values holding newlines or semicolons survive. `--` comments
// outside a literal run to end of line; the quote toggling handles doubled
// quotes inside a literal on its own.
func splitStatements(dump string) []string {
	var (
		statements []string
		current    strings.Builder
		inLiteral  bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}
	for i := 0; i < len(dump); i++ {
		c := dump[i]
		if inLiteral {
			current.WriteByte(c)
			if c == '\'' {
				inLiteral = false
			}
			continue
		}
		switch {
		case c == '\'':
			inLiteral = true
			current.WriteByte(c)
		case c == '-' && i+1 < len(dump) && dump[i+1] == '-':
			for i < len(dump) && dump[i] != '\n' {
				i++
			}
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return statements
}

func sqlBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// sqlList renders a StringList column value; an empty list is NULL, matching
// what the store holds.
func sqlList(l model.StringList) string {
	if len(l) == 0 {
		return "NULL"
	}
	return sqlQuote(l.Encoded())
}
