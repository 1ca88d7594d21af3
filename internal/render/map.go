package render

import (
	"encoding/json"
	"html/template"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Frame is one drawable polygon set: a single solve result, labeled with
// its time-of-day sample (or the scenario name for a single solve).
type Frame struct {
	Label      string
	Collection *geojson.FeatureCollection
}

// Map is a self-contained interactive map document. With one frame it
// renders statically; with several it cycles through them on a timer,
// clearing the previous frame's graphics each step.
type Map struct {
	Title  string
	Frames []Frame
	// FrameIntervalMS paces the animation. Presentation only; defaults to
	// 1500ms.
	FrameIntervalMS int
}

type frameJSON struct {
	Label      string          `json:"label"`
	Collection json.RawMessage `json:"collection"`
}

// WriteHTML renders the map document to w.
func (m *Map) WriteHTML(w io.Writer) error {
	if len(m.Frames) == 0 {
		return eris.New("render: map has no frames")
	}

	frames := make([]frameJSON, len(m.Frames))
	for i, f := range m.Frames {
		data, err := json.Marshal(f.Collection)
		if err != nil {
			return eris.Wrapf(err, "render: marshal frame %q", f.Label)
		}
		frames[i] = frameJSON{Label: f.Label, Collection: data}
	}
	framesData, err := json.Marshal(frames)
	if err != nil {
		return eris.Wrap(err, "render: marshal frames")
	}

	interval := m.FrameIntervalMS
	if interval <= 0 {
		interval = 1500
	}
	title := m.Title
	if title == "" {
		title = "Service areas"
	}

	data := struct {
		Title      string
		FramesJSON template.JS
		IntervalMS int
	}{
		Title:      title,
		FramesJSON: template.JS(framesData), //nolint:gosec // JSON from our own marshaller
		IntervalMS: interval,
	}

	if err := mapTemplate.Execute(w, data); err != nil {
		return eris.Wrap(err, "render: execute map template")
	}
	return nil
}

// WriteFile renders the map document to a file.
func (m *Map) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := m.WriteHTML(f); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "render: close %s", path)
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0"/>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  #caption {
    position: absolute; top: 10px; right: 10px; z-index: 1000;
    background: rgba(255,255,255,0.9); padding: 6px 12px;
    border-radius: 4px; font: 14px/1.4 sans-serif;
  }
</style>
</head>
<body>
<div id="map"></div>
<div id="caption"></div>
<script>
var frames = {{.FramesJSON}};
var intervalMS = {{.IntervalMS}};

var map = L.map('map');
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var currentLayer = null;

function layerFor(frame) {
  return L.geoJSON(frame.collection, {
    style: function (f) {
      return {
        color: f.properties.fill,
        weight: 1,
        fillColor: f.properties.fill,
        fillOpacity: f.properties.fillOpacity
      };
    },
    pointToLayer: function (f, latlng) {
      return L.circleMarker(latlng, {
        radius: 6, color: '#000', fillColor: '#fff', fillOpacity: 1, weight: 2
      });
    },
    onEachFeature: function (f, layer) {
      if (f.properties.popupTitle) {
        layer.bindPopup('<b>' + f.properties.popupTitle + '</b><br/>' + (f.properties.popupBody || ''));
      }
    }
  });
}

function showFrame(i) {
  if (currentLayer) { map.removeLayer(currentLayer); }
  currentLayer = layerFor(frames[i]);
  currentLayer.addTo(map);
  document.getElementById('caption').textContent = frames[i].label;
}

showFrame(0);
map.fitBounds(currentLayer.getBounds(), { padding: [20, 20] });

if (frames.length > 1) {
  var idx = 0;
  setInterval(function () {
    idx = (idx + 1) % frames.length;
    showFrame(idx);
  }, intervalMS);
}
</script>
</body>
</html>
`))
