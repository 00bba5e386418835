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

package binmaputil

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/binmap"
)

func inputOptions() (InputOptions, error) {
	cols, err := csvColumns(Cfg)
	if err != nil {
		return InputOptions{}, err
	}
	o := InputOptions{
		Input:     Cfg.GetString("input"),
		Name:      Cfg.GetString("name"),
		SRID:      Cfg.GetInt("srid"),
		PixelSize: Cfg.GetInt("pixelsize"),
		Columns:   cols,
		NoHeaders: Cfg.GetBool("noheaders"),
		Opacity:   Cfg.GetFloat64("opacity"),
	}
	if o.Input == "" {
		return o, fmt.Errorf("binmap: no input file specified")
	}
	return o, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, a := range args {
		var err error
		if ids[i], err = cast.ToInt64E(a); err != nil {
			return nil, fmt.Errorf("binmap: invalid id %q", a)
		}
	}
	return ids, nil
}

var rasterizeCmd = &cobra.Command{
	Use:   "rasterize",
	Short: "Aggregate point measurements into a new layer.",
	Long: `rasterize reads point measurements from a CSV file, aggregates the
values that fall in each pixel, and stores the result as a new layer with
an automatically created legend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := inputOptions()
		if err != nil {
			return err
		}
		include, err := cast.ToIntSliceE(Cfg.Get("ifequals"))
		if err != nil {
			return fmt.Errorf("binmap: ifequals: %v", err)
		}
		sc, err := SpatialConfig(Cfg)
		if err != nil {
			return err
		}
		st, _, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		l, err := Rasterize(cmd.Context(), st, sc, RasterizeOptions{
			InputOptions:   in,
			MinimumSamples: Cfg.GetInt("minsamples"),
			Include:        include,
			Decibels:       Cfg.GetBool("decibels"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n", l.ID, l)
		return nil
	},
	DisableAutoGenTag: true,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load pre-aggregated pixels as new layers.",
	Long: `load reads a CSV file in which each row is already the value of a
pixel, and stores one new layer for each value column.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := inputOptions()
		if err != nil {
			return err
		}
		in.Columns.Time = Cfg.GetInt("time")
		in.Columns.TimeLayout = Cfg.GetString("timelayout")
		sc, err := SpatialConfig(Cfg)
		if err != nil {
			return err
		}
		st, _, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		layers, err := Load(cmd.Context(), st, sc, in)
		if err != nil {
			return err
		}
		for _, l := range layers {
			fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n", l.ID, l)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two layers.",
	Long: `compare matches the pixels of two layers and stores their difference,
absolute difference or sample percentage as a new layer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := binmap.ParseCompareMethod(Cfg.GetString("method"))
		if err != nil {
			return err
		}
		opts := binmap.CompareOptions{
			Name:           Cfg.GetString("name"),
			MinimumSamples: Cfg.GetInt("Compare.MinSamples"),
			Method:         method,
		}
		if opts.FillValue, err = optionalFloat(Cfg, "fillvalue"); err != nil {
			return err
		}
		if opts.Filter.GTE, err = optionalFloat(Cfg, "valuegte"); err != nil {
			return err
		}
		if opts.Filter.LTE, err = optionalFloat(Cfg, "valuelte"); err != nil {
			return err
		}
		st, _, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		l, c, err := CompareLayers(cmd.Context(), st, int64(Cfg.GetInt("first")),
			int64(Cfg.GetInt("second")), Cfg.GetFloat64("opacity"), opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s: %d pixels (%d filled), legend %s\n", l.ID, l, c.Grid.Len(), c.Filled, c.Legend)
		return nil
	},
	DisableAutoGenTag: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored layers.",
	Long: `list prints the id, name, displayed field, pixel size and center
of every stored layer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := SpatialConfig(Cfg)
		if err != nil {
			return err
		}
		st, cache, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return List(cmd.Context(), st, cache, sc, cmd.OutOrStdout(), Cfg.GetBool("json"))
	},
	DisableAutoGenTag: true,
}

var removeCmd = &cobra.Command{
	Use:   "remove id...",
	Short: "Remove layers.",
	Long: `remove deletes the layers with the given ids along with their pixels.
Use the 'list' command to find layer ids.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		st, _, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return Remove(cmd.Context(), st, cmd.OutOrStdout(), ids...)
	},
	DisableAutoGenTag: true,
}

var legendCmd = &cobra.Command{
	Use:               "legend",
	Short:             "Show and edit legends.",
	Long:              `legend shows and edits the legends used to display layers.`,
	DisableAutoGenTag: true,
}

var legendHTMLCmd = &cobra.Command{
	Use:   "html layer-id",
	Short: "Print the legend of a layer as HTML.",
	Long:  `html prints the legend of a layer as an HTML fragment for a web map.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		st, cache, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		html, err := LegendHTML(cmd.Context(), cache, ids[0], Cfg.GetBool("invert"))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), html)
		return nil
	},
	DisableAutoGenTag: true,
}

var legendSetCmd = &cobra.Command{
	Use:   "set legend-id",
	Short: "Change a legend.",
	Long: `set changes the bounds, colors, number of bands or scale of a legend.
Options that are not given are left unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		c := LegendChanges{
			MinColor:  Cfg.GetString("Legend.MinColor"),
			MaxColor:  Cfg.GetString("Legend.MaxColor"),
			BandCount: Cfg.GetInt("Legend.Bands"),
			Scale:     Cfg.GetString("Legend.Scale"),
		}
		if c.Min, err = optionalFloat(Cfg, "Legend.Min"); err != nil {
			return err
		}
		if c.Max, err = optionalFloat(Cfg, "Legend.Max"); err != nil {
			return err
		}
		st, _, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		l, err := UpdateLegend(cmd.Context(), st, ids[0], c)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), l)
		return nil
	},
	DisableAutoGenTag: true,
}

var legendAssignCmd = &cobra.Command{
	Use:   "assign layer-id legend-id",
	Short: "Display a layer with a different legend.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		st, _, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.SetLayerLegend(cmd.Context(), ids[0], ids[1])
	},
	DisableAutoGenTag: true,
}

var exportCmd = &cobra.Command{
	Use:   "export layer-id",
	Short: "Export a layer as a shapefile.",
	Long: `export writes the pixels of a layer, with all of their statistics, to
a shapefile of square polygons.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		st, cache, err := openStore(Cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return Export(cmd.Context(), cache, ids[0], Cfg.GetString("output"))
	},
	DisableAutoGenTag: true,
}
