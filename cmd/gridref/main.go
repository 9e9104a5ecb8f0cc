package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/gridlive/pkg/osgrid"
)

func main() {
	var (
		lat, lon, east, north float64
		ref                   string
	)
	flag.Float64Var(&lat, "lat", 0, "WGS84 latitude in decimal degrees")
	flag.Float64Var(&lon, "lon", 0, "WGS84 longitude in decimal degrees")
	flag.Float64Var(&east, "e", -1, "National Grid eastings in meters")
	flag.Float64Var(&north, "n", -1, "National Grid northings in meters")
	flag.StringVar(&ref, "ref", "", "OS grid reference, e.g. TG5140913177")
	flag.Parse()

	switch {
	case ref != "":
		e, n, err := osgrid.ParseGridReference(ref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing grid reference: %v\n", err)
			os.Exit(1)
		}
		printFromGrid(e, n)
	case east >= 0 && north >= 0:
		printFromGrid(east, north)
	default:
		e, n := osgrid.ToEastingsNorthings(lat, lon)
		fmt.Printf("National Grid position of %.6f, %.6f\n", lat, lon)
		fmt.Printf("  Eastings:       %.3f\n", e)
		fmt.Printf("  Northings:      %.3f\n", n)
		gr, err := osgrid.FormatGridReference(e, n)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting grid reference: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  Grid Reference: %s\n", gr)
	}
}

func printFromGrid(e, n float64) {
	lat, lon := osgrid.ToLatLon(e, n)
	fmt.Printf("WGS84 position of E %.0f N %.0f\n", e, n)
	fmt.Printf("  Latitude:  %.6f\n", lat)
	fmt.Printf("  Longitude: %.6f\n", lon)
	if gr, err := osgrid.FormatGridReference(e, n); err == nil {
		fmt.Printf("  Grid Ref:  %s\n", gr)
	}
}
