package streak

// MilestoneStep is the spacing between streak milestones
const MilestoneStep = 5

// NextMilestone returns the next milestone strictly above current
func NextMilestone(current int) int {
	thresholds := []int{5, 10, 15, 20}
	for _, t := range thresholds {
		if t > current {
			return t
		}
	}
	// Beyond 20, every 5.
	return ((current / MilestoneStep) + 1) * MilestoneStep
}

func DaysToNextMilestone(current int) int {
	return NextMilestone(current) - current
}

// IsMilestone reports whether a streak length lands on a milestone
func IsMilestone(streak int) bool {
	return streak > 0 && streak%MilestoneStep == 0
}
