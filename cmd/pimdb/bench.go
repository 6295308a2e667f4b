package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meavi1994/go-pimdb"
)

type Spaceship struct {
	pimdb.BaseDocument
	Name  string `json:"name"`
	Class string `json:"class"`
	Crew  int    `json:"crew"`
}

var shipNames = []string{
	"Nostromo", "Sulaco", "Serenity", "Rocinante", "Galactica", "Enterprise",
	"Millennium Falcon", "Discovery One", "Event Horizon", "Bebop", "Heart of Gold",
	"Normandy", "Pillar of Autumn", "Red Dwarf", "Icarus", "Prometheus",
}

var (
	benchCount      int
	benchIterations int
	benchQuery      string
	benchSeed       uint64

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Compare SortedIndex.Find and SubstringIndex.Search with a linear scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(slog.Default(), benchCount, benchIterations, benchQuery, benchSeed)
		},
	}
)

func init() {
	benchCmd.Flags().IntVar(&benchCount, "count", 100000, "Number of documents")
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 1000, "Query repetitions per measurement")
	benchCmd.Flags().StringVar(&benchQuery, "query", "Nostromo", "Name to look up")
	benchCmd.Flags().Uint64Var(&benchSeed, "seed", 1, "Random seed for the generated documents")
	rootCmd.AddCommand(benchCmd)
}

func spaceships(n int, seed uint64) []*Spaceship {
	r := rand.New(rand.NewPCG(seed, seed))
	docs := make([]*Spaceship, n)
	for i := range docs {
		docs[i] = &Spaceship{
			BaseDocument: pimdb.BaseDocument{ID: pimdb.NewID()},
			Name:         fmt.Sprintf("%s %d", shipNames[r.IntN(len(shipNames))], r.IntN(n)),
			Class:        []string{"freighter", "frigate", "cruiser", "shuttle"}[r.IntN(4)],
			Crew:         r.IntN(5000),
		}
	}
	return docs
}

func runBench(log *slog.Logger, count, iterations int, query string, seed uint64) error {
	if count <= 0 || iterations <= 0 {
		return fmt.Errorf("count and iterations must be positive")
	}
	docs := spaceships(count, seed)
	docs[count/2].Name = query

	sorted := pimdb.MustSortedIndex[*Spaceship]("name")
	text := pimdb.MustSubstringIndex[*Spaceship]("name")
	start := time.Now()
	for _, d := range docs {
		sorted.Insert(d)
		text.Insert(d)
	}
	log.Info("indexes built", "docs", count, "elapsed", time.Since(start))

	measure := func(name string, fn func() int) {
		var hits int
		start := time.Now()
		for range iterations {
			hits = fn()
		}
		elapsed := time.Since(start)
		log.Info(name, "hits", hits, "per_op", elapsed/time.Duration(iterations))
	}

	measure("linear exact filter", func() int {
		n := 0
		for _, d := range docs {
			if d.Name == query {
				n++
			}
		}
		return n
	})
	measure("sorted.Find", func() int {
		return len(sorted.Find(query))
	})
	needle := strings.ToLower(string([]rune(query)[:min(len([]rune(query)), 5)]))
	measure("linear substring filter", func() int {
		n := 0
		for _, d := range docs {
			if strings.Contains(strings.ToLower(d.Name), needle) {
				n++
			}
		}
		return n
	})
	measure("substring.Search", func() int {
		return len(text.Search(needle))
	})
	return nil
}
