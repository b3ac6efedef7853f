package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docflow/pipectl/internal/application"
	"github.com/docflow/pipectl/internal/config"
	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

func newRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "pipectl",
		Short:         "pipectl provisions and operates WorkZone document-ingestion pipelines",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newCredentialsCommand(cfg),
		newTokenCommand(cfg),
		newCreateCommand(cfg),
		newListCommand(cfg),
		newRefreshCommand(cfg),
		newStatusCommand(cfg),
		newExecutionsCommand(cfg),
		newExecutionCommand(cfg),
		newDocumentsCommand(cfg),
		newDocumentCommand(cfg),
		newTriggerCommand(cfg),
		newDeleteCommand(cfg),
		newHistoryCommand(cfg),
	)

	return root
}

func newCredentialsCommand(cfg *config.Config) *cobra.Command {
	var certFrom, keyFrom string
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Store the client certificate and key for mutual TLS",
		Long: `Reads the certificate and key from the given files, or as pasted text, one
per line. Escaped newline sequences (\n) from a copied JSON service key are
normalized to real line breaks before the material is written with owner-only
permissions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			certText, err := credentialInput(in, out, certFrom, "Paste certificate (single line, \\n escapes ok): ")
			if err != nil {
				return err
			}
			keyText, err := credentialInput(in, out, keyFrom, "Paste private key (single line, \\n escapes ok): ")
			if err != nil {
				return err
			}

			cred, err := a.provisionService().StoreCredential(certText, keyText, cfg.CertFile, cfg.KeyFile)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Certificate stored at %s\n", cred.CertPath)
			fmt.Fprintf(out, "Key stored at %s\n", cred.KeyPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&certFrom, "cert-from", "", "read the certificate from this file instead of prompting")
	cmd.Flags().StringVar(&keyFrom, "key-from", "", "read the private key from this file instead of prompting")
	return cmd
}

// credentialInput reads one half of the pair, from a file when a path was
// given, otherwise from the prompt.
func credentialInput(in *bufio.Reader, out io.Writer, fromFile, prompt string) (string, error) {
	if fromFile != "" {
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", fromFile, err)
		}
		return string(data), nil
	}
	return promptLine(in, out, prompt)
}

func newTokenCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Acquire a bearer token via the client-credentials grant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.provisionService().AcquireToken(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token acquired (%d chars): %s...\n", len(token.Value), truncate(token.Value, 16))
			return nil
		},
	}
}

func newCreateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create [destination]",
		Short: "Create a WorkZone pipeline for a destination",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			destination := cfg.Destination
			if len(args) == 1 {
				destination = args[0]
			}
			if destination == "" {
				if destination, _ = a.state.Get(driven.StateKeyDestination); destination == "" {
					return fmt.Errorf("no destination given: pass one or set PIPECTL_DESTINATION")
				}
			}

			svc, err := a.pipelineService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.Create(cmd.Context(), destination)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !result.Extracted() {
				fmt.Fprintf(out, "Pipeline created, but the response carried no recognizable identifier.\n")
				fmt.Fprintf(out, "Raw response: %s\n", result.Raw)
				fmt.Fprintf(out, "Run `pipectl refresh` to pick the pipeline up from the remote listing.\n")
				return nil
			}

			// Remember the destination for the next create without an argument.
			if err := a.state.Set(driven.StateKeyDestination, destination); err != nil {
				slog.Warn("failed to remember destination", "error", err)
			}

			fmt.Fprintf(out, "Pipeline %s created for destination %q\n", result.ID, destination)
			return nil
		},
	}
}

func newListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally registered pipelines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.registry.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No pipelines registered. Run `pipectl refresh` to pull the remote listing.")
				return nil
			}
			for _, id := range ids {
				rec, err := a.registry.Get(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", id, rec.Type, rec.Configuration.Destination, rec.Status)
			}
			return nil
		},
	}
}

func newRefreshCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Replace the local registry with the remote pipeline listing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.pipelineService(cmd.Context())
			if err != nil {
				return err
			}

			count, err := svc.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registry refreshed: %d pipeline(s)\n", count)
			return nil
		},
	}
}

func newStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status [pipeline-id]",
		Short: "Show the remote status of a pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cfg, cmd, args, func(a *app, svc *application.PipelineService, id string) error {
				raw, err := svc.Status(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			})
		},
	}
}

func newExecutionsCommand(cfg *config.Config) *cobra.Command {
	var top, skip int
	cmd := &cobra.Command{
		Use:   "executions [pipeline-id]",
		Short: "List executions of a pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cfg, cmd, args, func(a *app, svc *application.PipelineService, id string) error {
				raw, err := svc.Executions(cmd.Context(), id, model.Page{Top: top, Skip: skip})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", model.DefaultPage.Top, "maximum number of executions to return")
	cmd.Flags().IntVar(&skip, "skip", model.DefaultPage.Skip, "number of executions to skip")
	return cmd
}

func newExecutionCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "execution <pipeline-id> <execution-id>",
		Short: "Show one execution of a pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.pipelineService(cmd.Context())
			if err != nil {
				return err
			}

			raw, err := svc.Execution(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}

func newDocumentsCommand(cfg *config.Config) *cobra.Command {
	var top, skip int
	cmd := &cobra.Command{
		Use:   "documents [pipeline-id]",
		Short: "List documents ingested by a pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cfg, cmd, args, func(a *app, svc *application.PipelineService, id string) error {
				raw, err := svc.Documents(cmd.Context(), id, model.Page{Top: top, Skip: skip})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", model.DefaultPage.Top, "maximum number of documents to return")
	cmd.Flags().IntVar(&skip, "skip", model.DefaultPage.Skip, "number of documents to skip")
	return cmd
}

func newDocumentCommand(cfg *config.Config) *cobra.Command {
	var executionID string
	cmd := &cobra.Command{
		Use:   "document <pipeline-id> <document-id>",
		Short: "Show one document of a pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.pipelineService(cmd.Context())
			if err != nil {
				return err
			}

			raw, err := svc.Document(cmd.Context(), args[0], args[1], executionID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&executionID, "execution", "", "scope the lookup under an execution id")
	return cmd
}

func newTriggerCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger [pipeline-id]",
		Short: "Trigger a pipeline run (rate limited to 5 calls/minute/tenant)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cfg, cmd, args, func(a *app, svc *application.PipelineService, id string) error {
				outcome, err := svc.Trigger(cmd.Context(), id)
				out := cmd.OutOrStdout()
				switch outcome {
				case model.TriggerAccepted:
					fmt.Fprintf(out, "Trigger accepted for %s\n", id)
					return nil
				case model.TriggerRateLimited:
					fmt.Fprintf(out, "Rate limited: the service allows 5 trigger calls per minute per tenant. Try again shortly.\n")
					return err
				case model.TriggerNotFound:
					fmt.Fprintf(out, "Pipeline %s does not exist remotely. Run `pipectl refresh`.\n", id)
					return err
				default:
					return err
				}
			})
		},
	}
}

func newDeleteCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [pipeline-id]",
		Short: "Delete a pipeline remotely and locally",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cfg, cmd, args, func(a *app, svc *application.PipelineService, id string) error {
				if !confirmDeletion(cmd.InOrStdin(), cmd.OutOrStdout(), id) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}

				outcome, err := svc.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}

				switch outcome {
				case model.DeleteAlreadyGone:
					fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s was already gone remotely; local record removed.\n", id)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s deleted.\n", id)
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recorded journal of remote operations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No operations recorded yet.")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s\t%s\t%s\t%s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Operation, e.PipelineID, e.Outcome)
				if e.Detail != "" {
					line += "\t" + e.Detail
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries to show")
	return cmd
}

// withPipeline wires the app and pipeline service, resolves the pipeline id
// from the argument or the last-used id in state, and runs fn.
func withPipeline(cfg *config.Config, cmd *cobra.Command, args []string, fn func(a *app, svc *application.PipelineService, id string) error) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolvePipelineID(a, args)
	if err != nil {
		return err
	}

	svc, err := a.pipelineService(cmd.Context())
	if err != nil {
		return err
	}

	return fn(a, svc, id)
}

func resolvePipelineID(a *app, args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	id, err := a.state.Get(driven.StateKeyLastPipelineID)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("no pipeline id given and none remembered: pass an id or run `pipectl create`")
	}
	return id, nil
}

// confirmDeletion walks the two-stage prompt: a y/N question first, then the
// literal word DELETE typed back. Anything else aborts.
func confirmDeletion(in io.Reader, out io.Writer, id string) bool {
	r := bufio.NewReader(in)

	answer, err := promptLine(r, out, fmt.Sprintf("Delete pipeline %s remotely and locally? [y/N] ", id))
	if err != nil || !strings.EqualFold(answer, "y") {
		return false
	}

	answer, err = promptLine(r, out, "Type DELETE to confirm: ")
	if err != nil {
		return false
	}
	return answer == "DELETE"
}

func promptLine(r *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
