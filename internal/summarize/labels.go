package summarize

// displayLabels remaps the raw classifier vocabulary to the shorter display
// vocabulary consumed by the dashboard. Lookup data, not logic: labels not
// present here pass through unchanged.
var displayLabels = map[string]string{
	"BASALT":                  "Basalt",
	"PICROBASALT":             "Picrobasalt",
	"BASALTIC ANDESITE":       "Basaltic Andesite",
	"ANDESITE":                "Andesite",
	"DACITE":                  "Dacite",
	"RHYOLITE":                "Rhyolite",
	"TRACHYBASALT":            "Trachybasalt",
	"BASALTIC TRACHYANDESITE": "Basaltic Trachyandesite",
	"TRACHYANDESITE":          "Trachyandesite",
	"TRACHYTE":                "Trachyte",
	"TRACHYDACITE":            "Trachydacite",
	"TEPHRITE":                "Tephrite",
	"BASANITE":                "Basanite",
	"PHONOTEPHRITE":           "Phonotephrite",
	"TEPHRIPHONOLITE":         "Tephriphonolite",
	"PHONOLITE":               "Phonolite",
	"FOIDITE":                 "Foidite",
}

// LabelFor returns the display form of a raw classifier rock label.
func LabelFor(raw string) string {
	if display, ok := displayLabels[raw]; ok {
		return display
	}
	return raw
}
