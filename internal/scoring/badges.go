package scoring

// BadgeThreshold pairs a badge name with the point total that earns it.
type BadgeThreshold struct {
	Name        string
	Threshold   int
	Description string
	Level       string
}

// Thresholds is the fixed badge ladder, ordered by threshold. Evaluation is
// independent per badge, not ladder-gated: a user who jumps from 0 to 300
// points in one sync earns the first three badges in that same pass.
var Thresholds = []BadgeThreshold{
	{Name: "Newbie Committer", Threshold: 10, Description: "Awarded for making your first commit", Level: "Beginner"},
	{Name: "Rising Contributor", Threshold: 100, Description: "Awarded for consistent contributions", Level: "Intermediate"},
	{Name: "Issue Solver", Threshold: 250, Description: "Awarded for resolving issues", Level: "Intermediate"},
	{Name: "Merge Artisian", Threshold: 500, Description: "Awarded for successful pull request merges", Level: "Intermediate"},
	{Name: "PR Ninja", Threshold: 750, Description: "Awarded for exceptional pull request skills", Level: "Advanced"},
	{Name: "Open Source Expert", Threshold: 1000, Description: "Awarded for significant open source contributions", Level: "Expert"},
	{Name: "Open Source Guru", Threshold: 1250, Description: "Awarded for mastery in open source development", Level: "Master"},
	{Name: "Open Source Samurai", Threshold: 1500, Description: "Awarded for legendary open source achievements", Level: "Legendary"},
}

// EarnedBadges returns every badge name whose threshold is ≤ points.
// The boundary is inclusive: exactly 10 points earns "Newbie Committer".
func EarnedBadges(points int) []string {
	var names []string
	for _, t := range Thresholds {
		if points >= t.Threshold {
			names = append(names, t.Name)
		}
	}
	return names
}

// ValidBadgeName reports whether name is one of the fixed badge names.
// Used by the admin award endpoint to reject unknown badges.
func ValidBadgeName(name string) bool {
	for _, t := range Thresholds {
		if t.Name == name {
			return true
		}
	}
	return false
}
