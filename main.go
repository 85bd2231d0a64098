package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/config"
)

var cfg *config.Config

var flags struct {
	configFile string
	envFile    string
	input      string
	maxPages   int
	headless   bool
}

var rootCmd = &cobra.Command{
	Use:   "linkedin_scraper",
	Short: "Scrape LinkedIn people search results for a role",
	Long: "Signs in to LinkedIn, searches people for the role named in the input workbook, " +
		"enriches every profile through Scrapingdog and stores the results in MongoDB and a spreadsheet.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(config.LoadOptions{ConfigFile: flags.configFile, EnvFile: flags.envFile})
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: runScrape,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&flags.configFile, "config", "", "config file (default ./config.yaml when present)")
	f.StringVar(&flags.envFile, "env-file", "", "dotenv file with USERNAME, PASSWORD and API keys (default ./.env)")

	rootCmd.Flags().StringVar(&flags.input, "input", "", "input workbook with a role column (default linkedin_data.xlsx)")
	rootCmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "maximum number of results pages to scrape (default 5)")
	rootCmd.Flags().BoolVar(&flags.headless, "headless", false, "run Chrome without a window")
}

// applyFlags lets explicitly set flags win over file and environment values
func applyFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("input") {
		c.Input.Path = flags.input
	}
	if cmd.Flags().Changed("max-pages") {
		c.Search.MaxPages = flags.maxPages
	}
	if cmd.Flags().Changed("headless") {
		c.Browser.Headless = flags.headless
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
