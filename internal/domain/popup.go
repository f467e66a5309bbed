package domain

import (
	"bytes"
	"fmt"
	"html/template"
)

// Fixed popup bodies for the inspection lifecycle.
const (
	PlaceholderPopupHTML = `<div style="color:#333; padding:5px;">Scanning atmosphere...</div>`
	FailurePopupHTML     = `<div style="color:red; padding:10px;">Unable to retrieve telemetry.</div>`
	HighCOWarning        = "High CO detected (possible fire)"
)

var inspectionTmpl = template.Must(template.New("inspection").Parse(`<div style="font-family: 'Segoe UI', sans-serif; min-width: 200px; color: #333;">
  <div style="background: #222; color: #fff; padding: 8px; border-radius: 4px 4px 0 0; display:flex; justify-content:space-between; align-items:center;">
    <span style="font-weight:600;">{{.Name}}</span>
    <span style="background:{{.AQIColor}}; color:#000; padding:2px 6px; border-radius:4px; font-size:11px; font-weight:bold;">AQI {{.AQI}}</span>
  </div>
  <div style="padding: 10px;">
    <div style="display:flex; align-items:center; margin-bottom:8px;">
      <span style="font-size:24px; font-weight:bold; margin-right:10px;">{{.Temp}}°C</span>
      <div style="font-size:12px; line-height:1.2;">
        <div>Wind: <b>{{.WindSpeed}} m/s</b></div>
        <div>Direction: <b>{{.WindDeg}}°</b></div>
        <div>{{.Description}}</div>
      </div>
    </div>
    <hr style="border:0; border-top:1px solid #eee; margin:8px 0;">
    <div style="font-size:11px; font-weight:600; color:#555; margin-bottom:4px;">ATMOSPHERIC COMPOSITION (μg/m³)</div>
    <div style="display:grid; grid-template-columns: 1fr 1fr; gap: 5px; font-size: 12px;">
      <div style="background:#f5f5f5; padding:4px; border-radius:4px;"><span style="color:#666;">CO</span> <b style="float:right;">{{.CO}}</b></div>
      <div style="background:#f5f5f5; padding:4px; border-radius:4px;"><span style="color:#666;">NO₂</span> <b style="float:right;">{{.NO2}}</b></div>
      <div style="background:#f5f5f5; padding:4px; border-radius:4px;"><span style="color:#666;">SO₂</span> <b style="float:right;">{{.SO2}}</b></div>
      <div style="background:#f5f5f5; padding:4px; border-radius:4px;"><span style="color:#666;">PM2.5</span> <b style="float:right;">{{.PM25}}</b></div>
    </div>
    {{- if .NearestFire}}
    <div style="margin-top:8px; font-size:11px; color:#555;">Nearest hotspot: <b>{{.NearestFire}} km</b></div>
    {{- end}}
    {{- if .HighCO}}
    <div style="margin-top:8px; color:#c0392b; font-weight:600; font-size:11px;">{{.Warning}}</div>
    {{- end}}
  </div>
</div>`))

var firePopupTmpl = template.Must(template.New("fire").Parse(`<div style="font-family: system-ui; min-width: 180px;">
  <div style="font-weight: 600; color: #ff4500; margin-bottom: 8px; font-size: 14px;">Fire Detected</div>
  <div style="font-size: 12px; line-height: 1.6; color: #333;">
    <b>Intensity:</b> {{.Intensity}} MW<br>
    <b>Confidence:</b> {{.Confidence}}<br>
    <b>Source:</b> {{.Source}}<br>
    <b>Date:</b> {{.Date}}<br>
    <b>Time:</b> {{.Time}} UTC<br>
    <b>Location:</b> {{.Location}}
  </div>
</div>`))

// RenderInspectionHTML formats an inspection as popup content.
func RenderInspectionHTML(i Inspection) (string, error) {
	data := struct {
		Name, AQIColor, Description, Warning, NearestFire string
		AQI, Temp                                         int
		WindSpeed, WindDeg, CO, NO2, SO2, PM25            float64
		HighCO                                            bool
	}{
		Name:        i.LocationName(),
		AQIColor:    AQIColor(i.Air.AQI),
		Description: i.Weather.Description,
		Warning:     HighCOWarning,
		AQI:         i.Air.AQI,
		Temp:        i.RoundedTemp(),
		WindSpeed:   i.Weather.WindSpeed,
		WindDeg:     i.Weather.WindDeg,
		CO:          i.Air.Components.CO,
		NO2:         i.Air.Components.NO2,
		SO2:         i.Air.Components.SO2,
		PM25:        i.Air.Components.PM25,
		HighCO:      i.HighCO(),
	}
	if i.NearestFireKm != nil {
		data.NearestFire = fmt.Sprintf("%.1f", *i.NearestFireKm)
	}

	var buf bytes.Buffer
	if err := inspectionTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render inspection popup: %w", err)
	}
	return buf.String(), nil
}

// RenderFirePopupHTML formats a hotspot's attributes as popup content.
func RenderFirePopupHTML(r FireRecord) (string, error) {
	data := struct {
		Intensity                                float64
		Confidence, Source, Date, Time, Location string
	}{
		Intensity:  r.Intensity,
		Confidence: r.Confidence,
		Source:     r.Source,
		Date:       r.Date,
		Time:       r.Time,
		Location:   fmt.Sprintf("%.4f°, %.4f°", r.Lat, r.Lon),
	}

	var buf bytes.Buffer
	if err := firePopupTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render fire popup: %w", err)
	}
	return buf.String(), nil
}
