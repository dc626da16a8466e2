package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkuwise/pkuwise/internal/api"
	"github.com/pkuwise/pkuwise/internal/recipes"
	"github.com/pkuwise/pkuwise/internal/report"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a diet question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Asking PKU Wise...")
		resp, err := client.post(cmd.Context(), "/chat", api.ChatRequest{Query: query})
		if err != nil {
			return err
		}

		var result api.ChatResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Reply)
		return nil
	},
}

// --- recipes ---

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Generate PKU-safe recipe ideas from your dietary profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		request, _ := cmd.Flags().GetString("request")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Generating recipes...")
		resp, err := client.post(cmd.Context(), "/recipes", map[string]string{"query": request})
		if err != nil {
			return err
		}

		var result recipes.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, rec := range result.Recipes {
			fmt.Printf("\n%s\n", colorize(colorBold, rec.Title))
			fmt.Println(rec.Description)
			printStatus("PHE", "%.0f mg/serving", rec.PheMgPerServing)
			printStatus("Protein", "%.1f g/serving", rec.ProteinGPerServing)
			printStatus("Calories", "%.0f kcal/serving", rec.CaloriesKcalPerServing)
		}
		return nil
	},
}

// --- summary ---

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a one-paragraph summary of your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/profile-summary", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result["summary"])
		return nil
	},
}

// --- report ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show a diet report for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		if from == "" || to == "" {
			return fmt.Errorf("--from and --to are required (YYYY-MM-DD)")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/report", api.ReportRequest{StartDate: from, EndDate: to})
		if err != nil {
			return err
		}

		var rep report.Report
		if err := decodeJSON(resp, &rep); err != nil {
			return err
		}

		printSuccess("Diet report for %s (%s to %s)", rep.ReportFor, rep.StartDate, rep.EndDate)
		printStatus("Days logged", "%d", rep.TotalDaysLogged)
		printStatus("Avg PHE", "%.0f mg/day", rep.AvgPheMg)
		printStatus("Avg protein", "%.1f g/day", rep.AvgProteinG)
		printStatus("Avg calories", "%.0f kcal/day", rep.AvgCaloriesKcal)
		printStatus("Days over PHE limit", "%d", rep.DaysOverPheLimit)
		return nil
	},
}

func init() {
	recipesCmd.Flags().String("request", "", "what kind of meal you want (e.g. \"low-protein breakfast\")")
	reportCmd.Flags().String("from", "", "report start date (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "report end date (YYYY-MM-DD)")
}
