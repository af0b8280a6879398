package session

import "github.com/starford/orrery/internal/models"

// GraphSettingsUpdate is a partial update of the simulation settings.
type GraphSettingsUpdate struct {
	NodeSize       *float64 `json:"nodeSize,omitempty"`
	LinkStrength   *float64 `json:"linkStrength,omitempty"`
	RepulsionForce *float64 `json:"repulsionForce,omitempty"`
	NodeAppearance *string  `json:"nodeAppearance,omitempty"`
	ShowLabels     *bool    `json:"showLabels,omitempty"`
	AnimationSpeed *float64 `json:"animationSpeed,omitempty"`
	ChargeStrength *float64 `json:"chargeStrength,omitempty"`
}

// GraphSettings returns the current simulation settings.
func (m *Manager) GraphSettings() models.GraphSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph
}

// UpdateGraphSettings merges upd into the current settings.
func (m *Manager) UpdateGraphSettings(upd GraphSettingsUpdate) models.GraphSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &m.graph
	if upd.NodeSize != nil {
		g.NodeSize = *upd.NodeSize
	}
	if upd.LinkStrength != nil {
		g.LinkStrength = *upd.LinkStrength
	}
	if upd.RepulsionForce != nil {
		g.RepulsionForce = *upd.RepulsionForce
	}
	if upd.NodeAppearance != nil {
		g.NodeAppearance = *upd.NodeAppearance
	}
	if upd.ShowLabels != nil {
		g.ShowLabels = *upd.ShowLabels
	}
	if upd.AnimationSpeed != nil {
		g.AnimationSpeed = *upd.AnimationSpeed
	}
	if upd.ChargeStrength != nil {
		g.ChargeStrength = *upd.ChargeStrength
	}
	return m.graph
}

// ResetGraphSettings restores the defaults.
func (m *Manager) ResetGraphSettings() models.GraphSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graph = models.DefaultGraphSettings()
	return m.graph
}
