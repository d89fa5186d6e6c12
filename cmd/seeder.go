package cmd

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/irfansh/bugtracker/internal/authz"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"bugs", "project_members", "projects", "sessions", "users"} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)

		seedUsers := []struct {
			Name  string
			Email string
			Role  authz.Role
		}{
			{"Admin", "admin@mail.com", authz.RoleAdmin},
			{"Maya Manager", "maya@mail.com", authz.RoleManager},
			{"Quentin QA", "quentin@mail.com", authz.RoleQa},
			{"Devi Developer", "devi@mail.com", authz.RoleDev},
		}

		ids := make(map[authz.Role]int64)
		for _, u := range seedUsers {
			var id int64
			err := db.QueryRow("SELECT id FROM users WHERE email = $1", u.Email).Scan(&id)
			if err == nil {
				fmt.Println("user already exists:", u.Email)
				ids[u.Role] = id
				continue
			}

			err = db.QueryRow(
				"INSERT INTO users (name, email, password_hash, role, created_at, updated_at) VALUES ($1, $2, $3, $4, now(), now()) RETURNING id",
				u.Name, u.Email, string(hash), string(u.Role)).Scan(&id)
			if err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			ids[u.Role] = id
			fmt.Println("Seeded user:", u.Email, "role:", u.Role)
		}

		seedDemoProject(db, ids)
	},
}

func seedDemoProject(db *sqlx.DB, ids map[authz.Role]int64) {
	var projectID int64
	err := db.QueryRow("SELECT id FROM projects WHERE title = $1", "Demo Project").Scan(&projectID)
	if err == nil {
		fmt.Println("demo project already exists")
		return
	}

	err = db.QueryRow(
		"INSERT INTO projects (title, description, created_at, updated_at) VALUES ($1, $2, now(), now()) RETURNING id",
		"Demo Project", "Sample project seeded for development").Scan(&projectID)
	if err != nil {
		log.Fatalf("failed to insert demo project: %v", err)
	}

	members := []struct {
		Role   authz.Role
		Member string
	}{
		{authz.RoleManager, "manager"},
		{authz.RoleQa, "qa"},
		{authz.RoleDev, "dev"},
	}
	for _, m := range members {
		userID, ok := ids[m.Role]
		if !ok {
			continue
		}
		if _, err := db.Exec(
			"INSERT INTO project_members (project_id, user_id, member_role, created_at) VALUES ($1, $2, $3, now())",
			projectID, userID, m.Member); err != nil {
			log.Fatalf("failed to insert project member: %v", err)
		}
	}

	devID := ids[authz.RoleDev]
	if _, err := db.Exec(
		"INSERT INTO bugs (title, description, type, status, project_id, assigned_developer_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, now(), now())",
		"Sample bug", "Seeded bug for development", "bug", "new", projectID, devID); err != nil {
		log.Fatalf("failed to insert sample bug: %v", err)
	}

	fmt.Println("Seeded demo project with members and a sample bug")
}
