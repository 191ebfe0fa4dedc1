// Package cli provides the command-line front end for the storage engine.
// It is an external collaborator: argument parsing, result printing, and
// exit codes live here, never inside the engine itself.
package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bitlogdb/bitlog/internal/engine"
	"github.com/bitlogdb/bitlog/internal/engineerrors"
)

// keyNotFoundSentinel is the fixed string Get prints on a miss.
const keyNotFoundSentinel = "Key not found"

// Handler dispatches the get/set/rm sub-commands against an Engine opened
// once at process startup against the current working directory.
type Handler struct {
	engine *engine.Engine
}

// NewHandler wraps an already-open Engine for CLI dispatch.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// App builds the urfave/cli application exposing get/set/rm.
func (h *Handler) App() *cli.App {
	return &cli.App{
		Name:                 "bitlog",
		Usage:                "an embedded, log-structured key-value store",
		UsageText:            "bitlog get <key> | bitlog set <key> <value> | bitlog rm <key>",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print the value stored under key, or \"" + keyNotFoundSentinel + "\" on a miss",
				ArgsUsage: "<key>",
				Action:    h.get,
			},
			{
				Name:      "set",
				Usage:     "store value under key, overwriting any prior mapping",
				ArgsUsage: "<key> <value>",
				Action:    h.set,
			},
			{
				Name:      "rm",
				Usage:     "remove key; fails if key has no mapping",
				ArgsUsage: "<key>",
				Action:    h.remove,
			},
		},
	}
}

func (h *Handler) get(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("Usage: bitlog get <key>", 1)
	}
	key := c.Args().Get(0)

	value, ok, err := h.engine.Get(key)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if !ok {
		fmt.Println(keyNotFoundSentinel)
		return nil
	}
	fmt.Println(value)
	return nil
}

func (h *Handler) set(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("Usage: bitlog set <key> <value>", 1)
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	if err := h.engine.Set(key, value); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func (h *Handler) remove(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("Usage: bitlog rm <key>", 1)
	}
	key := c.Args().Get(0)

	if err := h.engine.Delete(key); err != nil {
		if engineerrors.Is(err, engineerrors.KeyNotFound) {
			return cli.Exit(keyNotFoundSentinel, 1)
		}
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
