package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"lexease-backend/internal/analyses"
	"lexease-backend/internal/documents"
	"lexease-backend/internal/drafting"
	"lexease-backend/internal/mcpserver"
)

func newRootCmd(load loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "lexctl",
		Short:         "Analyze, question and draft legal documents from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// withServices loads the application once per command and releases it
	// when the command returns.
	withServices := func(run func(cmd *cobra.Command, args []string, svc *services) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, err := load()
			if err != nil {
				return err
			}
			if svc.Close != nil {
				defer svc.Close()
			}
			return run(cmd, args, svc)
		}
	}

	extractCmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the plain text extracted from a PDF, DOCX or text file",
		Args:  cobra.ExactArgs(1),
		RunE: withServices(func(cmd *cobra.Command, args []string, svc *services) error {
			text, err := readDocument(cmd, svc, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}),
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Summarize a document, extract entities and flag risky clauses",
		Long: `Analyze a document and print the result as JSON.

Examples:
  lexctl analyze ./lease.pdf
  lexctl analyze ./nda.docx --role lawyer`,
		Args: cobra.ExactArgs(1),
		RunE: withServices(func(cmd *cobra.Command, args []string, svc *services) error {
			rawRole, _ := cmd.Flags().GetString("role")
			role, err := analyses.ParseRole(rawRole)
			if err != nil {
				return err
			}
			text, err := readDocument(cmd, svc, args[0])
			if err != nil {
				return err
			}
			analysis, err := svc.Analyzer.Analyze(cmd.Context(), text, role)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			return printJSON(cmd, documents.ToAnalysisResponse(analysis))
		}),
	}
	analyzeCmd.Flags().String("role", "", "audience: layperson, lawStudent or lawyer")

	askCmd := &cobra.Command{
		Use:   "ask [file]",
		Short: "Answer a question about a document, or a general legal question without one",
		Args:  cobra.MaximumNArgs(1),
		RunE: withServices(func(cmd *cobra.Command, args []string, svc *services) error {
			question, _ := cmd.Flags().GetString("question")
			if strings.TrimSpace(question) == "" {
				return errors.New("--question is required")
			}
			var (
				answer string
				err    error
			)
			if len(args) == 0 {
				answer, err = svc.QA.AskGeneral(cmd.Context(), question)
			} else {
				var text string
				text, err = readDocument(cmd, svc, args[0])
				if err != nil {
					return err
				}
				answer, err = svc.QA.Ask(cmd.Context(), text, question)
			}
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		}),
	}
	askCmd.Flags().StringP("question", "q", "", "question to answer")

	draftCmd := &cobra.Command{
		Use:   "draft",
		Short: "Fill a legal template with the supplied details",
		Long: `Draft a document from the template catalog.

Examples:
  lexctl draft --type affidavit --details "Name: Jane Doe, Age: 30, City: Pune"
  lexctl draft --type affidavit --lang hi --details-file ./details.txt`,
		RunE: withServices(func(cmd *cobra.Command, args []string, svc *services) error {
			docType, _ := cmd.Flags().GetString("type")
			lang, _ := cmd.Flags().GetString("lang")
			details, _ := cmd.Flags().GetString("details")
			detailsFile, _ := cmd.Flags().GetString("details-file")
			if detailsFile != "" {
				data, err := os.ReadFile(detailsFile)
				if err != nil {
					return fmt.Errorf("reading details: %w", err)
				}
				details = string(data)
			}
			draft, err := svc.Drafter.Draft(cmd.Context(), drafting.DraftRequest{
				DocumentType: docType,
				Language:     lang,
				UserInputs:   details,
			})
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), draft)
			return nil
		}),
	}
	draftCmd.Flags().String("type", "", "document type, e.g. affidavit or agreement")
	draftCmd.Flags().String("lang", "en", "language: en, hi or mr")
	draftCmd.Flags().String("details", "", "details as 'Key: value' pairs")
	draftCmd.Flags().String("details-file", "", "file containing the details")

	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "List available drafting templates",
		Args:  cobra.NoArgs,
		RunE: withServices(func(cmd *cobra.Command, args []string, svc *services) error {
			for _, name := range svc.Drafter.ListTemplates(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}),
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis, Q&A and drafting tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: withServices(func(cmd *cobra.Command, args []string, svc *services) error {
			srv := mcpserver.New(mcpserver.Deps{
				Analyzer: svc.Analyzer,
				QA:       svc.QA,
				Drafter:  svc.Drafter,
				Version:  version,
			})
			err := server.NewStdioServer(srv).Listen(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil && !errors.Is(err, cmd.Context().Err()) {
				return err
			}
			return nil
		}),
	}

	root.AddCommand(extractCmd, analyzeCmd, askCmd, draftCmd, templatesCmd, mcpCmd)
	return root
}

func readDocument(cmd *cobra.Command, svc *services, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	res, err := svc.Extractor.Extract(cmd.Context(), data, "", filepath.Base(path))
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
