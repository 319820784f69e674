package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mauv0809/match-ledger/internal/auth"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd, metricsCmd, tokenCmd, submitCmd, getCmd, vetoCmd,
		pendingCmd, approvalsCmd, recordsCmd, ratingCmd)
	for _, op := range []string{"confirm", "reject", "cancel", "approve", "finalize"} {
		rootCmd.AddCommand(transitionCmd(op))
	}

	tokenCmd.Flags().String("user", "", "User id to issue the token for")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.MarkFlagRequired("user")

	submitCmd.Flags().String("mode", "singles", "singles or doubles")
	submitCmd.Flags().String("format", "6_game", "Scoring format: 6_game, 4_game, tb11, tb10 or tb7")
	submitCmd.Flags().String("date", time.Now().Format(time.DateOnly), "Date the match was played")
	submitCmd.Flags().String("location", "", "Where the match was played")
	submitCmd.Flags().String("partner", "", "Your partner, doubles only")
	submitCmd.Flags().StringSlice("opponent", nil, "Opponent user id, repeat for doubles")
	submitCmd.Flags().String("score", "", "Score as yours-theirs, e.g. 6-2")
	submitCmd.Flags().String("request-id", "", "Client request id for safe retries")
	submitCmd.MarkFlagRequired("opponent")
	submitCmd.MarkFlagRequired("score")

	vetoCmd.Flags().String("reason", "", "Why the match is vetoed")
	vetoCmd.MarkFlagRequired("reason")

	recordsCmd.Flags().String("mode", "singles", "singles or doubles")
	recordsCmd.Flags().Int("limit", 0, "Page size")
	recordsCmd.Flags().Int("offset", 0, "Rows to skip")
	recordsCmd.Flags().Int64("before", 0, "Cursor from a previous page's next_before")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development token signed with $JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		user, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		signed, err := auth.NewJWTValidator(secret).Issue(user, ttl)
		if err != nil {
			return err
		}
		fmt.Println(signed)
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <club>",
	Short: "Submit a played match for confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		mode, _ := flags.GetString("mode")
		format, _ := flags.GetString("format")
		date, _ := flags.GetString("date")
		location, _ := flags.GetString("location")
		partner, _ := flags.GetString("partner")
		opponents, _ := flags.GetStringSlice("opponent")
		score, _ := flags.GetString("score")
		requestID, _ := flags.GetString("request-id")

		own, their, err := parseScore(score)
		if err != nil {
			return err
		}
		collection := "pending_matches"
		if mode == "doubles" {
			collection = "pending_doubles"
		}
		body := map[string]any{
			"format":            format,
			"date":              date,
			"location":          location,
			"partner_id":        partner,
			"opponent_ids":      opponents,
			"score_initiator":   own,
			"score_opponent":    their,
			"client_request_id": requestID,
		}
		return performRequest(http.MethodPost, "/clubs/"+args[0]+"/"+collection, body)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <club> <match>",
	Short: "Show a match as seen by the token's user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, matchPath(args), nil)
	},
}

func transitionCmd(op string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <club> <match>",
		Short: strings.ToUpper(op[:1]) + op[1:] + " a match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return performRequest(http.MethodPost, matchPath(args)+"/"+op, nil)
		},
	}
}

var vetoCmd = &cobra.Command{
	Use:   "veto <club> <match>",
	Short: "Veto a match as club admin",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return performRequest(http.MethodPost, matchPath(args)+"/veto", map[string]string{"reason": reason})
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending <player>",
	Short: "List your matches that are not settled yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/players/"+args[0]+"/pending_matches", nil)
	},
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals <club>",
	Short: "List matches waiting for admin approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/clubs/"+args[0]+"/pending_approvals", nil)
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records <player>",
	Short: "Page through a player's finalized matches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		mode, _ := flags.GetString("mode")
		limit, _ := flags.GetInt("limit")
		offset, _ := flags.GetInt("offset")
		before, _ := flags.GetInt64("before")

		endpoint := "/players/" + args[0] + "/records"
		if mode == "doubles" {
			endpoint = "/players/" + args[0] + "/doubles_records"
		}
		q := url.Values{}
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		if offset > 0 {
			q.Set("offset", strconv.Itoa(offset))
		}
		if before > 0 {
			q.Set("before", strconv.FormatInt(before, 10))
		}
		if len(q) > 0 {
			endpoint += "?" + q.Encode()
		}
		return performRequest(http.MethodGet, endpoint, nil)
	},
}

var ratingCmd = &cobra.Command{
	Use:   "rating <player>",
	Short: "Show a player's ratings and recent changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/players/"+args[0]+"/rating", nil)
	},
}

func matchPath(args []string) string {
	collection := "/pending_matches/"
	if doubles {
		collection = "/pending_doubles/"
	}
	return "/clubs/" + args[0] + collection + args[1]
}

func parseScore(score string) (int, int, error) {
	own, their, ok := strings.Cut(score, "-")
	if !ok {
		return 0, 0, fmt.Errorf("score must look like 6-2, got %q", score)
	}
	a, err := strconv.Atoi(strings.TrimSpace(own))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid score %q: %w", score, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(their))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid score %q: %w", score, err)
	}
	return a, b, nil
}

func performRequest(method, endpoint string, body any) error {
	target := host + endpoint
	fmt.Printf("Making request to %s %s\n", method, target)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	return nil
}
