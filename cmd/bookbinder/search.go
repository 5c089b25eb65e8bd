package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/ssh-vom/bookbinder/internal/books"
	"github.com/ssh-vom/bookbinder/internal/search"
)

var errBlankQuery = errors.New("search query cannot be empty")

func newSearchCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query...]",
		Short: "Run one search and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if len(args) == 0 {
				prompt := &survey.Input{Message: "Enter your search query"}
				if err := survey.AskOne(prompt, &query); err != nil {
					return err
				}
			}
			return runSearch(cmd.OutOrStdout(), cmd.ErrOrStderr(), options, query)
		},
	}
}

func runSearch(out, errOut io.Writer, options *rootOptions, query string) error {
	cfg, _, err := loadConfig(options)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, errOut)
	client, err := newClient(cfg, newHTTPClient(), logger)
	if err != nil {
		return err
	}

	controller := search.NewController(client, logger, nil)
	controller.SetQuery(query)

	searchCmd := controller.Submit()
	if searchCmd == nil {
		return errBlankQuery
	}
	outcome := searchCmd()
	msg, ok := outcome.(search.ResultMsg)
	if !ok {
		return fmt.Errorf("unexpected search outcome %T", outcome)
	}
	controller.Handle(msg)

	if err := controller.Err(); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printResults(out, controller.Results())
	return nil
}

func printResults(out io.Writer, results books.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No books found.")
		return
	}
	for _, record := range results {
		fmt.Fprintf(out, "%s — %s\n", record.Title, record.AuthorLine())
	}
}
