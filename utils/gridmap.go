/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package utils

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"strings"

	sm "github.com/flopp/go-staticmaps"
	"github.com/golang/geo/s2"
	"github.com/pd0mz/go-maidenhead"
)

// MapConfig controls the rendered grid map.
type MapConfig struct {
	Width      int
	Height     int
	Zoom       int // 0 picks a zoom that fits both markers
	OutputPath string
}

// DefaultMapConfig returns the size used on the QSO detail page.
func DefaultMapConfig() MapConfig {
	return MapConfig{
		Width:      600,
		Height:     400,
		Zoom:       0,
		OutputPath: "grid_map.png",
	}
}

type mapContext interface {
	SetSize(width, height int)
	SetZoom(zoom int)
	SetCenter(center s2.LatLng)
	AddObject(object sm.MapObject)
	Attribution() string
	OverrideAttribution(attribution string)
	Render() (image.Image, error)
}

var (
	newMapContext = func() mapContext { return sm.NewContext() }
	createFile    = func(path string) (io.WriteCloser, error) { return os.Create(path) }
	encodePNG     = png.Encode
)

var (
	stationMarkerColor = color.RGBA{R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff}
	contactMarkerColor = color.RGBA{R: 0xd7, G: 0x30, B: 0x27, A: 0xff}
	pathColor          = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xc0}
)

// NormalizeGridSquare trims and validates a Maidenhead locator, returning it
// in canonical case (field upper, subsquare lower).
func NormalizeGridSquare(grid string) (string, error) {
	grid = strings.TrimSpace(grid)
	if grid == "" {
		return "", nil
	}

	if _, err := maidenhead.ParseLocator(grid); err != nil {
		return "", fmt.Errorf("%w: %s", errInvalidGridSquare, grid)
	}

	if len(grid) <= 4 {
		return strings.ToUpper(grid), nil
	}

	return strings.ToUpper(grid[:4]) + strings.ToLower(grid[4:]), nil
}

// GridDistanceKm returns the great-circle distance between two locators.
func GridDistanceKm(fromGrid, toGrid string) (float64, error) {
	from, err := maidenhead.ParseLocator(strings.TrimSpace(fromGrid))
	if err != nil {
		return 0, fmt.Errorf("failed to parse station grid locator: %w", err)
	}

	to, err := maidenhead.ParseLocator(strings.TrimSpace(toGrid))
	if err != nil {
		return 0, fmt.Errorf("failed to parse contact grid locator: %w", err)
	}

	return from.Distance(to), nil
}

// CreateGridMap renders a PNG with the contact's grid square and, when
// stationGrid is set, the station's square joined by a path. It returns the
// distance between the two squares (0 without a station grid).
func CreateGridMap(stationGrid, contactGrid string, config MapConfig) (float64, error) {
	contact, err := maidenhead.ParseLocator(strings.TrimSpace(contactGrid))
	if err != nil {
		return 0, fmt.Errorf("failed to parse contact grid locator: %w", err)
	}

	contactPos := s2.LatLngFromDegrees(contact.Latitude, contact.Longitude)

	ctx := newMapContext()
	ctx.SetSize(config.Width, config.Height)
	ctx.AddObject(sm.NewMarker(contactPos, contactMarkerColor, 16.0))

	distance := 0.0
	center := contactPos
	zoom := config.Zoom
	attribution := "QSO Map: " + contactGrid

	if strings.TrimSpace(stationGrid) != "" {
		station, err := maidenhead.ParseLocator(strings.TrimSpace(stationGrid))
		if err != nil {
			return 0, fmt.Errorf("failed to parse station grid locator: %w", err)
		}

		stationPos := s2.LatLngFromDegrees(station.Latitude, station.Longitude)
		distance = station.Distance(contact)

		ctx.AddObject(sm.NewMarker(stationPos, stationMarkerColor, 16.0))
		ctx.AddObject(sm.NewPath([]s2.LatLng{stationPos, contactPos}, pathColor, 2.0))

		center = s2.LatLngFromDegrees(
			(station.Latitude+contact.Latitude)/2,
			(station.Longitude+contact.Longitude)/2,
		)

		if zoom == 0 {
			zoom = calculateZoomLevel(
				math.Min(station.Latitude, contact.Latitude),
				math.Max(station.Latitude, contact.Latitude),
				math.Min(station.Longitude, contact.Longitude),
				math.Max(station.Longitude, contact.Longitude),
				config.Width, config.Height,
			)
		}

		attribution = fmt.Sprintf("QSO Map: %s <-> %s (%.0f km)", stationGrid, contactGrid, distance)
	}

	if zoom == 0 {
		zoom = 4
	}

	ctx.SetCenter(center)
	ctx.SetZoom(zoom)
	ctx.OverrideAttribution(attribution + "\n" + ctx.Attribution())

	img, err := ctx.Render()
	if err != nil {
		return distance, fmt.Errorf("failed to render map: %w", err)
	}

	if err := saveImage(img, config.OutputPath); err != nil {
		return distance, err
	}

	return distance, nil
}

// calculateZoomLevel picks the largest tile zoom that keeps the bounding box
// inside the image, clamped to [1, 18].
func calculateZoomLevel(minLat, maxLat, minLng, maxLng float64, width, height int) int {
	const tileSize = 256.0

	latFraction := (latRad(maxLat) - latRad(minLat)) / math.Pi
	lngFraction := (maxLng - minLng) / 360.0

	latZoom := zoomFor(float64(height), tileSize, latFraction)
	lngZoom := zoomFor(float64(width), tileSize, lngFraction)

	zoom := int(math.Min(latZoom, lngZoom)) - 1

	return max(1, min(zoom, 18))
}

func latRad(lat float64) float64 {
	sin := math.Sin(lat * math.Pi / 180)
	radX2 := math.Log((1+sin)/(1-sin)) / 2

	return math.Max(math.Min(radX2, math.Pi), -math.Pi) / 2
}

func zoomFor(pixels, tileSize, fraction float64) float64 {
	if fraction <= 0 {
		return 18
	}

	return math.Floor(math.Log(pixels/tileSize/fraction) / math.Ln2)
}

func saveImage(img image.Image, path string) error {
	f, err := createFile(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close map file", "path", path, "error", err)
		}
	}()

	if err := encodePNG(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	return nil
}
