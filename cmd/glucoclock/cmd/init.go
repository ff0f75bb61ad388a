package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"glucoclock/glucoclock/defs"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type initOptions struct {
	dexcomAccount  string
	dexcomPassword string
	dexcomRegion   string
	glucoseLow     float64
	glucoseHigh    float64
	discordToken   string
	discordChannel string
	mongoUsername  string
	mongoPassword  string
	timezone       string
	envFile        string
	force          bool
}

var (
	initOpts initOptions

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file, with secrets in a separate env file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, env := generate(initOpts)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return err
			}
			if err := writeNew(configPath, data, 0o644, initOpts.force); err != nil {
				return err
			}

			if len(env) > 0 && initOpts.envFile != "" {
				if err := writeNew(initOpts.envFile, []byte(envString(env)), 0o600, initOpts.force); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	}
)

func init() {
	f := initCmd.Flags()
	f.StringVar(&initOpts.dexcomAccount, "dexcom-account", "", "dexcom account")
	f.StringVar(&initOpts.dexcomPassword, "dexcom-password", "", "dexcom password")
	f.StringVar(&initOpts.dexcomRegion, "dexcom-region", "ous", "share region: us, ous or jp")
	f.Float64Var(&initOpts.glucoseLow, "glucose-low", 3.5, "low alarm threshold in mmol/L")
	f.Float64Var(&initOpts.glucoseHigh, "glucose-high", 10, "high alarm threshold in mmol/L")
	f.StringVar(&initOpts.discordToken, "discord-token", "", "discord bot token")
	f.StringVar(&initOpts.discordChannel, "discord-channel", "", "discord alerts channel id")
	f.StringVar(&initOpts.mongoUsername, "mongo-username", "", "mongo username")
	f.StringVar(&initOpts.mongoPassword, "mongo-password", "", "mongo password")
	f.StringVar(&initOpts.timezone, "timezone", "", "IANA timezone, local time when empty")
	f.StringVar(&initOpts.envFile, "env-file", "glucoclock.env", "file to write secrets to")
	f.BoolVar(&initOpts.force, "force", false, "overwrite existing files")

	rootCmd.AddCommand(initCmd)
}

// generate builds the config for opts. Secrets go to the env map rather than
// the config so the YAML can be shared.
func generate(opts initOptions) (defs.Config, map[string]string) {
	cfg := defs.Default()
	cfg.Dexcom.Account = opts.dexcomAccount
	cfg.Dexcom.Region = opts.dexcomRegion
	cfg.Glucose.Low = opts.glucoseLow
	cfg.Glucose.High = opts.glucoseHigh
	cfg.Discord.Channel = opts.discordChannel
	cfg.Timezone = opts.timezone

	env := map[string]string{}
	if opts.dexcomPassword != "" {
		env["DEXCOM_PASSWORD"] = opts.dexcomPassword
	}
	if opts.discordToken != "" {
		env["DISCORD_TOKEN"] = opts.discordToken
	}
	if opts.mongoUsername != "" {
		cfg.Mongo.URI = "mongodb://mongo:27017"
		env["MONGO_USERNAME"] = opts.mongoUsername
		env["MONGO_PASSWORD"] = opts.mongoPassword
	}
	return cfg, env
}

func envString(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k + "=" + env[k] + "\n")
	}
	return sb.String()
}

func writeNew(path string, data []byte, perm os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, perm)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s exists, use --force to overwrite", path)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
