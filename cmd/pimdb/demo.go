package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meavi1994/go-pimdb"
)

type User struct {
	pimdb.BaseDocument
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Admin bool   `json:"admin,omitempty"`
}

func (u *User) String() string {
	return fmt.Sprintf("(%s, %s, %d)", u.ID, u.Name, u.Age)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the users walkthrough on a typed collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(slog.Default())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(log *slog.Logger) error {
	age, err := pimdb.NewSortedIndex[*User]("age")
	if err != nil {
		return err
	}
	name, err := pimdb.NewSubstringIndex[*User]("name")
	if err != nil {
		return err
	}
	users, err := pimdb.NewCollection(pimdb.NewPrimaryIndex[*User](), map[string]pimdb.Index[*User]{
		"age":  age,
		"name": name,
	})
	if err != nil {
		return err
	}
	db := pimdb.NewDatabase()
	if err := db.Register("users", users); err != nil {
		return err
	}

	for _, u := range []*User{
		{BaseDocument: pimdb.BaseDocument{ID: "1"}, Name: "Alice", Age: 30},
		{BaseDocument: pimdb.BaseDocument{ID: "2"}, Name: "Bob", Age: 25},
		{BaseDocument: pimdb.BaseDocument{ID: "3"}, Name: "Charlie", Age: 35},
	} {
		if !users.Insert(u) {
			return fmt.Errorf("insert %s failed", u.ID)
		}
	}

	alice, _ := users.Primary().Get("1")
	log.Info("get by primary key", "id", "1", "user", alice)

	thirties, err := age.FindInRange(pimdb.Range{GTE: 30, LTE: 39})
	if err != nil {
		return err
	}
	log.Info("users in their thirties", "users", thirties)

	users.Update(&User{BaseDocument: pimdb.BaseDocument{ID: "1"}, Name: "Alice", Age: 31})
	alice, _ = users.Primary().Get("1")
	log.Info("updated", "user", alice)
	thirties, _ = age.FindInRange(pimdb.Range{GTE: 30, LTE: 39})
	log.Info("users in their thirties after update", "users", thirties)

	users.Delete("2")
	_, found := users.Primary().Get("2")
	log.Info("bob after deletion", "found", found)
	twenties, _ := age.FindInRange(pimdb.Range{GTE: 20, LTE: 29})
	log.Info("users in their twenties after deletion", "users", twenties)

	for _, q := range []string{"ali", "ALI", "Ali", "e"} {
		log.Info("search by name", "query", q, "users", name.Search(q))
	}
	log.Info("all users", "users", users.Primary().All())
	return nil
}
