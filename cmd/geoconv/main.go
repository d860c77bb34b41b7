// Command geoconv converts and reprojects GeoJSON and WKT geometry.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/jonnekleijer/geoconv"
	"github.com/jonnekleijer/geoconv/internal/config"
	"github.com/jonnekleijer/geoconv/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"GEOCONV_CONFIG"   description:"Path to configuration file" default:"geoconv.yaml"`
	Database   string `short:"d" long:"database" env:"GEOCONV_DATABASE" description:"SRID database file, embedded database when empty"`

	Transform TransformCommand `command:"transform" description:"Reproject GeoJSON or WKT from one EPSG code to another"`
	Convert   ConvertCommand   `command:"convert"   description:"Convert between GeoJSON and WKT without reprojecting"`
	Detect    DetectCommand    `command:"detect"    description:"Print the format of the input"`
	Codes     CodesCommand     `command:"codes"     description:"List or check supported EPSG codes"`
	Presets   PresetsCommand   `command:"presets"   description:"List the preset coordinate systems"`
	Export    ExportCommand    `command:"export"    description:"Reproject input and write it as FlatGeobuf"`
	Import    ImportCommand    `command:"import"    description:"Read a FlatGeobuf file as GeoJSON or WKT"`
}

// environment is shared by all commands once options are parsed.
type environment struct {
	ctx         context.Context
	cfg         *config.Config
	transformer *geoconv.Transformer
}

var (
	opts Options
	env  environment
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		opts.Logger.Setup()

		cfg, err := config.LoadOrDefault(opts.ConfigFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if opts.Database != "" {
			cfg.Database = opts.Database
		}

		reg := geoconv.NewRegistry(cfg.RegistryOptions())
		if err := reg.Load(); err != nil {
			log.Fatal().Err(err).Str("database", cfg.Database).Msg("Failed to load SRID database")
		}
		log.Debug().Int("codes", reg.Count()).Msg("SRID database loaded")

		env = environment{
			ctx:         ctx,
			cfg:         cfg,
			transformer: geoconv.NewTransformer(reg, &log.Logger),
		}
		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
