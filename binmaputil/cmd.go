/*
Copyright © 2024 the BinMap authors.
This file is part of BinMap.

BinMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

BinMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with BinMap.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package binmaputil contains the command-line interface to BinMap.
package binmaputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spatialmodel/binmap"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var logger = logrus.New()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	})
	logger.SetOutput(os.Stderr)

	// Options are the configuration options available to BinMap.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "db",
			usage: `
              db specifies the location of the database file that holds
              layers, pixels and legends. It may contain environment
              variables.`,
			defaultVal: "binmap.db",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "loglevel",
			usage: `
              loglevel specifies the minimum severity of log messages:
              one of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "cachesize",
			usage: `
              cachesize specifies the number of layers whose data is
              held in memory for drawing.`,
			defaultVal: 64,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Spatial.GridSRID",
			usage: `
              Spatial.GridSRID is the spatial reference id of the
              planar coordinate system that pixels are defined in. Its
              units must be meters.`,
			defaultVal: binmap.WebMercatorSRID,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Spatial.GeographicSRID",
			usage: `
              Spatial.GeographicSRID is the spatial reference id of the
              longitude-latitude coordinate system used to report layer
              locations.`,
			defaultVal: binmap.WGS84SRID,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Spatial.Projections",
			usage: `
              Spatial.Projections maps additional spatial reference ids
              to projection definitions in Proj4 format, for example
              {"27700":"+proj=tmerc +lat_0=49 +lon_0=-2 +k=0.9996012717 +x_0=400000 +y_0=-100000 +ellps=airy +units=m +no_defs"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "input",
			usage: `
              input specifies the CSV file to read. It can be a local
              path or a URL in the format provider://bucket/key, where
              provider is file, gs or s3. Gzipped files are decompressed
              automatically.`,
			shorthand:  "f",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags()},
		},
		{
			name: "pixelsize",
			usage: `
              pixelsize specifies the edge length of pixels in meters.`,
			shorthand:  "p",
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags()},
		},
		{
			name: "srid",
			usage: `
              srid specifies the spatial reference id of the input
              coordinates.`,
			shorthand:  "c",
			defaultVal: binmap.WGS84SRID,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags()},
		},
		{
			name: "lon",
			usage: `
              lon specifies the column index (starting at 0) of the
              longitude or x coordinate.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags()},
		},
		{
			name: "lat",
			usage: `
              lat specifies the column index (starting at 0) of the
              latitude or y coordinate.`,
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags()},
		},
		{
			name: "values",
			usage: `
              values specifies the column indices (starting at 0) of the
              values. rasterize only uses the first one; load creates one
              layer for each.`,
			shorthand:  "i",
			defaultVal: []int{3},
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags()},
		},
		{
			name: "noheaders",
			usage: `
              noheaders specifies that the first row of the input is data
              rather than column names.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags()},
		},
		{
			name: "name",
			usage: `
              name specifies the name of the new layer. By default it is
              derived from the input.`,
			shorthand:  "n",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "opacity",
			usage: `
              opacity specifies the suggested display opacity of the
              new layer, between 0 and 1.`,
			shorthand:  "o",
			defaultVal: binmap.DefaultOpacity,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags(), loadCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "minsamples",
			usage: `
              minsamples specifies the number of observations a pixel needs
              to be stored.`,
			shorthand:  "m",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags()},
		},
		{
			name: "ifequals",
			usage: `
              ifequals limits the observations to those whose value is
              one of the given integers.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags()},
		},
		{
			name: "decibels",
			usage: `
              decibels specifies that values are in decibels and are
              aggregated in the linear power domain.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{rasterizeCmd.Flags()},
		},
		{
			name: "time",
			usage: `
              time specifies the column index (starting at 0) of the time
              of each row. A negative value means that there is no time
              column and the load time is used instead.`,
			shorthand:  "d",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{loadCmd.Flags()},
		},
		{
			name: "timelayout",
			usage: `
              timelayout specifies the format of the time column as a Go
              reference time layout.`,
			defaultVal: binmap.DefaultCSVColumns().TimeLayout,
			flagsets:   []*pflag.FlagSet{loadCmd.Flags()},
		},
		{
			name: "first",
			usage: `
              first specifies the id of the first layer to compare.`,
			shorthand:  "a",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "second",
			usage: `
              second specifies the id of the second layer to compare.`,
			shorthand:  "b",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "method",
			usage: `
              method specifies how the layers are compared: diff,
              absdiff or percentage.`,
			defaultVal: "diff",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Compare.MinSamples",
			usage: `
              Compare.MinSamples specifies the number of samples a pixel
              needs in both layers to be compared.`,
			defaultVal: 250,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "fillvalue",
			usage: `
              fillvalue, if given, is assigned to pixels of the first layer
              that are not in the second.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "valuegte",
			usage: `
              valuegte, if given, limits the pixels of the first layer to
              those with values greater than or equal to it.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "valuelte",
			usage: `
              valuelte, if given, limits the pixels of the first layer to
              those with values less than or equal to it. It cannot be
              used together with valuegte.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "json",
			usage: `
              json specifies that layer information is printed as JSON.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{listCmd.Flags()},
		},
		{
			name: "invert",
			usage: `
              invert specifies that the legend is listed from the largest
              value to the smallest.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{legendHTMLCmd.Flags()},
		},
		{
			name: "Legend.Min",
			usage: `
              Legend.Min, if given, is the new lower bound of the legend.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{legendSetCmd.Flags()},
		},
		{
			name: "Legend.Max",
			usage: `
              Legend.Max, if given, is the new upper bound of the legend.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{legendSetCmd.Flags()},
		},
		{
			name: "Legend.MinColor",
			usage: `
              Legend.MinColor, if given, is the new color of the lower
              bound as a 6-digit RGB hex string.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{legendSetCmd.Flags()},
		},
		{
			name: "Legend.MaxColor",
			usage: `
              Legend.MaxColor, if given, is the new color of the upper
              bound as a 6-digit RGB hex string.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{legendSetCmd.Flags()},
		},
		{
			name: "Legend.Bands",
			usage: `
              Legend.Bands, if greater than zero, is the new number of
              legend bands.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{legendSetCmd.Flags()},
		},
		{
			name: "Legend.Scale",
			usage: `
              Legend.Scale, if given, is the new scale of the legend:
              linear or symmetric.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{legendSetCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output specifies the location of the exported shapefile. It
              can be a local path or a URL in the format
              provider://bucket/key.shp.`,
			defaultVal: "layer.shp",
			flagsets:   []*pflag.FlagSet{exportCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("BINMAP")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
			case int:
				set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(rasterizeCmd)
	Root.AddCommand(loadCmd)
	Root.AddCommand(compareCmd)
	Root.AddCommand(listCmd)
	Root.AddCommand(removeCmd)
	Root.AddCommand(legendCmd)
	legendCmd.AddCommand(legendHTMLCmd)
	legendCmd.AddCommand(legendSetCmd)
	legendCmd.AddCommand(legendAssignCmd)
	Root.AddCommand(exportCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("binmap: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("loglevel"))
	if err != nil {
		return fmt.Errorf("binmap: %v", err)
	}
	logger.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "binmap",
	Short: "Aggregate point measurements into map layers.",
	Long: `BinMap aggregates geospatial point measurements into square pixels,
compares the resulting layers, and creates legends for displaying them.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'BINMAP_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of BinMap.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("BinMap v%s\n", binmap.Version)
	},
	DisableAutoGenTag: true,
}
