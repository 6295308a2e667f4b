package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meavi1994/go-pimdb"
)

var (
	forceString bool
	rangeGTE    string
	rangeLTE    string

	collectionsCmd = &cobra.Command{
		Use:   "collections",
		Short: "List the collections of the schema with their size and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			type info struct {
				Name      string   `json:"name"`
				Documents int      `json:"documents"`
				Indexes   []string `json:"indexes"`
			}
			var out []info
			for _, name := range db.Names() {
				c, _ := db.Collection(name)
				out = append(out, info{Name: name, Documents: c.Len(), Indexes: c.IndexNames()})
			}
			return printJSON(out)
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [collection] [id]",
		Short: "Get a document by primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCollection(args[0])
			if err != nil {
				return err
			}
			doc, ok := c.Get(args[1])
			if !ok {
				return fmt.Errorf("%s: document %q not found", args[0], args[1])
			}
			return printJSON(doc)
		},
	}

	allCmd = &cobra.Command{
		Use:   "all [collection]",
		Short: "List every document of a collection ordered by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCollection(args[0])
			if err != nil {
				return err
			}
			return printJSON(c.Primary().All())
		},
	}

	findCmd = &cobra.Command{
		Use:   "find [collection] [sorted index] [value]",
		Short: "Find documents whose indexed field equals value, or all of them in index order",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := sortedIndex(args[0], args[1])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				return printJSON(idx.All())
			}
			return printJSON(idx.Find(parseValue(args[2], forceString)))
		},
	}

	rangeCmd = &cobra.Command{
		Use:   "range [collection] [sorted index]",
		Short: "Find documents whose indexed field lies within --gte and --lte (inclusive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := sortedIndex(args[0], args[1])
			if err != nil {
				return err
			}
			var r pimdb.Range
			if cmd.Flags().Changed("gte") {
				r.GTE = parseValue(rangeGTE, forceString)
			}
			if cmd.Flags().Changed("lte") {
				r.LTE = parseValue(rangeLTE, forceString)
			}
			docs, err := idx.FindInRange(r)
			if err != nil {
				return err
			}
			return printJSON(docs)
		},
	}

	searchCmd = &cobra.Command{
		Use:   "search [collection] [substring index] [query]",
		Short: "Find documents whose indexed field contains query, ignoring case",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCollection(args[0])
			if err != nil {
				return err
			}
			raw, ok := c.Index(args[1])
			if !ok {
				return fmt.Errorf("%s: unknown index %q", args[0], args[1])
			}
			idx, ok := raw.(*pimdb.SubstringIndex[pimdb.Record])
			if !ok {
				return fmt.Errorf("%s: index %q is not a substring index", args[0], args[1])
			}
			query := ""
			if len(args) == 3 {
				query = args[2]
			}
			return printJSON(idx.Search(query))
		},
	}
)

func init() {
	findCmd.Flags().BoolVar(&forceString, "string", false, "Treat the value as a string even if it looks like a number")
	rangeCmd.Flags().BoolVar(&forceString, "string", false, "Treat the bounds as strings even if they look like numbers")
	rangeCmd.Flags().StringVar(&rangeGTE, "gte", "", "Inclusive lower bound")
	rangeCmd.Flags().StringVar(&rangeLTE, "lte", "", "Inclusive upper bound")

	rootCmd.AddCommand(collectionsCmd, getCmd, allCmd, findCmd, rangeCmd, searchCmd)
}

func openCollection(name string) (*pimdb.Collection[pimdb.Record], error) {
	db, err := openDatabase()
	if err != nil {
		return nil, err
	}
	return pimdb.Lookup[pimdb.Record](db, name)
}

func sortedIndex(collection, name string) (*pimdb.SortedIndex[pimdb.Record], error) {
	c, err := openCollection(collection)
	if err != nil {
		return nil, err
	}
	raw, ok := c.Index(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown index %q", collection, name)
	}
	idx, ok := raw.(*pimdb.SortedIndex[pimdb.Record])
	if !ok {
		return nil, fmt.Errorf("%s: index %q is not a sorted index", collection, name)
	}
	return idx, nil
}

// parseValue reads a command line value as an integer, a float or a string,
// in that order.
func parseValue(s string, asString bool) any {
	if asString {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
