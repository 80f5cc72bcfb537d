// Command list_matches prints the stored grant/project matches as a table.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/beingthebridges/grantpal/internal/config"
	"github.com/beingthebridges/grantpal/internal/db"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	matches, err := store.ListMatches(ctx)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Score", "Urgent", "Grant", "Grant Budget", "Project", "Project Budget", "Created"})

	for _, m := range matches {
		urgent := ""
		if m.IsUrgent {
			urgent = "yes"
		}
		t.AppendRow(table.Row{
			m.MatchScore, urgent, m.GrantName, m.GrantBudget,
			m.ProjectName, m.ProjectBudget, m.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}
