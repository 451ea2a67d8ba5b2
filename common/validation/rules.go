package validation

// Rule is a named CEL expression that must evaluate to true for a
// mutation to be accepted.
type Rule struct {
	Name       string
	Expression string
	Message    string
}

// PrototypeRules guard field-level prototype updates.
var PrototypeRules = []Rule{
	{
		Name:       "name_present",
		Expression: `proto.name != ""`,
		Message:    "prototype name must not be empty",
	},
	{
		Name:       "player_bounds_order",
		Expression: `proto.min_players >= 1 && proto.min_players <= proto.max_players`,
		Message:    "min players must be between 1 and max players",
	},
	{
		Name:       "player_bounds_cap",
		Expression: `proto.max_players <= 20`,
		Message:    "max players must not exceed 20",
	},
}

// PartRules guard part creation and movement.
var PartRules = []Rule{
	{
		Name:       "position_non_negative",
		Expression: `part.pos_x >= 0 && part.pos_y >= 0`,
		Message:    "part position must not be negative",
	},
	{
		Name:       "size_positive",
		Expression: `part.width > 0 && part.height > 0`,
		Message:    "part size must be positive",
	},
	{
		Name:       "flip_requires_reversible",
		Expression: `!part.is_flipped || part.is_reversible`,
		Message:    "only reversible parts can be flipped",
	},
}
