package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nehilsa2/linkedin_scraper/config"
	"github.com/Nehilsa2/linkedin_scraper/pacing"
)

func TestNewPacer(t *testing.T) {
	assert.IsType(t, pacing.None{}, newPacer(config.PacingConfig{Factor: 0}))
	assert.IsType(t, &pacing.Random{}, newPacer(config.PacingConfig{Factor: 1, Seed: 7}))

	scaled, ok := newPacer(config.PacingConfig{Factor: 0.5, Seed: 7}).(pacing.Scaled)
	require.True(t, ok)
	assert.Equal(t, 0.5, scaled.Factor)
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&flags.input, "input", "", "")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "")
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--input", "data/in.xlsx", "--headless"}))

	c := &config.Config{
		Input:  config.InputConfig{Path: "linkedin_data.xlsx"},
		Search: config.SearchConfig{MaxPages: 5},
	}
	applyFlags(cmd, c)

	assert.Equal(t, "data/in.xlsx", c.Input.Path)
	assert.True(t, c.Browser.Headless)
	assert.Equal(t, 5, c.Search.MaxPages, "unset flags keep configured values")
}

func TestApplyFlags_MaxPagesOverrideRepairsInvalidConfig(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&flags.input, "input", "", "")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "")
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--max-pages", "3"}))

	c := &config.Config{
		Input:  config.InputConfig{Path: "linkedin_data.xlsx"},
		Search: config.SearchConfig{MaxPages: 0},
	}
	require.Error(t, c.Validate())

	applyFlags(cmd, c)
	assert.NoError(t, c.Validate())
	assert.Equal(t, 3, c.Search.MaxPages)
}
