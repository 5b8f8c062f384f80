package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dubber/internal/jobs"
	"dubber/internal/language"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0)
			for _, option := range language.Options() {
				rows = append(rows, []string{option.Code, option.Label})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Code", "Language"}, rows))
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health and tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload struct {
				Status string          `json:"status"`
				Tools  map[string]bool `json:"tools"`
			}
			if err := apiGet(ctx, "/health", &payload); err != nil {
				return err
			}
			rows := make([][]string, 0, len(payload.Tools))
			for name, available := range payload.Tools {
				state := "available"
				if !available {
					state = "missing"
				}
				rows = append(rows, []string{name, state})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon status: %s\n", payload.Status)
			fmt.Fprintln(out, renderTable([]string{"Tool", "State"}, rows))
			return nil
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var target string
	var user string

	cmd := &cobra.Command{
		Use:   "upload <video-file>",
		Short: "Submit a video for dubbing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !language.Supported(target) {
				return fmt.Errorf("unsupported target language %q (see 'dubber languages')", target)
			}
			baseURL, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open video: %w", err)
			}
			defer file.Close()

			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			part, err := writer.CreateFormFile("file", filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, file); err != nil {
				return fmt.Errorf("read video: %w", err)
			}
			if err := writer.WriteField("target_language", target); err != nil {
				return err
			}
			if err := writer.WriteField("user_id", user); err != nil {
				return err
			}
			if err := writer.Close(); err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, baseURL+"/upload", body)
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", writer.FormDataContentType())

			var payload struct {
				JobID string `json:"job_id"`
			}
			if err := doJSON(req, &payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued. Poll with 'dubber status %s'.\n", payload.JobID, payload.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "language", "l", "", "Target language code (required)")
	cmd.Flags().StringVarP(&user, "user", "u", "anonymous", "User id recorded with the job")
	_ = cmd.MarkFlagRequired("language")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show job status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for {
				var job jobs.Job
				if err := apiGet(ctx, "/jobs/"+args[0], &job); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s  %3.0f%%", job.ID, job.Status, job.Progress*100)
				if job.Error != "" {
					fmt.Fprintf(out, "  error: %s", job.Error)
				}
				if job.Message != "" {
					fmt.Fprintf(out, "  note: %s", job.Message)
				}
				fmt.Fprintln(out)
				if !watch || job.Status.Terminal() {
					return nil
				}
				time.Sleep(time.Second)
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the job reaches a terminal status")
	return cmd
}

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard <user>",
		Short: "Show a user's job history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dashboard jobs.Dashboard
			if err := apiGet(ctx, "/dashboard/"+args[0], &dashboard); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User %s: %d videos (%d completed, %d failed), %d words, %s of footage\n",
				dashboard.User, dashboard.TotalVideos, dashboard.Completed, dashboard.Failed,
				dashboard.TotalWords, (time.Duration(dashboard.TotalTimeSec)*time.Second).String())
			if len(dashboard.History) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(dashboard.History))
			for _, entry := range dashboard.History {
				rows = append(rows, []string{
					truncate(entry.JobID, 12),
					truncate(entry.Filename, 32),
					entry.TargetLanguage,
					string(entry.Status),
					fmt.Sprintf("%d", entry.Words),
					entry.FinishedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Job", "File", "Lang", "Status", "Words", "Finished"}, rows))
			return nil
		},
	}
}

func apiGet(ctx *commandContext, path string, target any) error {
	baseURL, err := ctx.apiBaseURL()
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}
	return doJSON(req, target)
}

func doJSON(req *http.Request, target any) error {
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if target == nil {
		return nil
	}
	return json.Unmarshal(body, target)
}
