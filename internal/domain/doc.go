// Package domain models satellite fire hotspots and point weather telemetry
// shown on the globe.
//
// # Hotspot Data Source
//
// Hotspots come from the NASA FIRMS area API, one request per satellite
// product, scoped to the current viewport:
//
//	https://firms.modaps.eosdis.nasa.gov/api/area/csv/<key>/<source>/<w,s,e,n>/<days>
//
// The bounding box is written west,south,east,north with two decimals.
// Products queried by default are VIIRS_SNPP_NRT and VIIRS_NOAA20_NRT with a
// one day lookback.
//
// # FIRMS Data Conventions
//
// The response is comma separated text with a header row. Column names vary
// between sensors, so the header is lower-cased before lookup:
//
//	latitude, longitude   required; rows that fail to parse are dropped
//	frp                   fire radiative power in MW, the "intensity"
//	confidence            "low"/"nominal"/"high" for VIIRS, 0-100 for MODIS
//	acq_date, acq_time    acquisition date (YYYY-MM-DD) and HHMM UTC
//	bright_ti4, brightness, bright_t31
//	                      brightness temperature in Kelvin; the first column
//	                      whose name contains "bright" is used
//
// Missing or unparsable values never drop a row: intensity defaults to 10,
// brightness to 300, confidence to "nominal", date and time to "".
//
// Invalid requests (bad key, bad bbox, exhausted quota) are answered with an
// HTML page or a short plain text message and a 200 status. A body containing
// "<!DOCTYPE" or "<html", or shorter than 50 characters, is treated as a
// failure for that source only. See [ValidateHotspotBody].
//
// # Weather Data Source
//
// Point telemetry comes from OpenWeatherMap data/2.5/weather (metric units) and
// data/2.5/air_pollution. The weather payload carries its own status in "cod",
// which may be a number or a string; anything other than 200 is a failure even
// when the HTTP status is 200. Air quality index is 1 (good) to 5 (very poor).
// A carbon monoxide concentration above [HighCOThreshold] µg/m³ is flagged as
// a possible fire.
package domain
