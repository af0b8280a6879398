package models

// Settings are user preferences. The service only reads EditorWidth for
// sizing layouts; everything else is stored opaquely for the client.
type Settings struct {
	Theme         string  `json:"theme"`
	SidebarWidth  int     `json:"sidebarWidth"`
	AIPanelWidth  int     `json:"aiPanelWidth"`
	EditorWidth   int     `json:"editorWidth"`
	FontSize      int     `json:"fontSize"`
	FontFamily    string  `json:"fontFamily"`
	LineHeight    float64 `json:"lineHeight"`
	ShowWordCount bool    `json:"showWordCount"`
	VimMode       bool    `json:"vimMode"`
}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:         "light",
		SidebarWidth:  220,
		AIPanelWidth:  360,
		EditorWidth:   720,
		FontSize:      16,
		FontFamily:    "sans",
		LineHeight:    1.6,
		ShowWordCount: true,
	}
}

// GraphSettings tune the client-side force simulation.
type GraphSettings struct {
	NodeSize       float64 `json:"nodeSize"`
	LinkStrength   float64 `json:"linkStrength"`
	RepulsionForce float64 `json:"repulsionForce"`
	NodeAppearance string  `json:"nodeAppearance"`
	ShowLabels     bool    `json:"showLabels"`
	AnimationSpeed float64 `json:"animationSpeed"`
	ChargeStrength float64 `json:"chargeStrength"`
}

// DefaultGraphSettings returns the simulation defaults.
func DefaultGraphSettings() GraphSettings {
	return GraphSettings{
		NodeSize:       8,
		LinkStrength:   0.5,
		RepulsionForce: 300,
		NodeAppearance: "circle",
		ShowLabels:     true,
		AnimationSpeed: 1,
		ChargeStrength: -200,
	}
}
