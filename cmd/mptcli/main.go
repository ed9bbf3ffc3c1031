// Command mptcli is a small inspection tool for the sparse Merkle-Patricia
// Trie engine: build a trie from a newline-delimited key=value fixture
// file, print its root hash, and optionally dump an archive image.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/zethtrie/sparsetrie/log"
	"github.com/zethtrie/sparsetrie/trie"
)

func main() {
	app := &cli.App{
		Name:  "mptcli",
		Usage: "inspect a sparse Merkle-Patricia trie built from a key=value fixture file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fixture", Aliases: []string{"f"}, Required: true, Usage: "path to a newline-delimited key=value file"},
			&cli.StringFlag{Name: "archive-out", Usage: "if set, write the archived byte image to this path"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "mptcli:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := log.New(level)

	t := trie.New()
	t.SetLogger(logger)

	f, err := os.Open(c.String("fixture"))
	if err != nil {
		return fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("malformed fixture line %q", line)
		}
		if _, err := t.Insert([]byte(parts[0]), []byte(parts[1])); err != nil {
			return fmt.Errorf("insert %q: %w", parts[0], err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	logger.Info("built trie", "entries", n, "size", t.Size())
	fmt.Printf("root: %s\n", t.Hash())

	if out := c.String("archive-out"); out != "" {
		archive, err := trie.Serialize(t.Root())
		if err != nil {
			return fmt.Errorf("serialize archive: %w", err)
		}
		if err := os.WriteFile(out, archive.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
		logger.Info("wrote archive", "path", out, "bytes", len(archive.Bytes()))
	}

	return nil
}
