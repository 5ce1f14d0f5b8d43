// Package roster reads group membership. Groups and students are owned elsewhere; this is read-only.
package roster

import "context"

type Provider interface {
	// GroupRoster returns the ids of the students of a group, sorted.
	// An unknown group has an empty roster.
	GroupRoster(ctx context.Context, groupID string) ([]string, error)
}

func Contains(members []string, studentID string) bool {
	for _, m := range members {
		if m == studentID {
			return true
		}
	}
	return false
}

// Outsiders returns the studentIDs that are not members, in input order.
func Outsiders(members, studentIDs []string) []string {
	set := toSet(members)
	var out []string
	for _, id := range studentIDs {
		if _, ok := set[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Missing returns the members absent from studentIDs, in roster order.
func Missing(members, studentIDs []string) []string {
	set := toSet(studentIDs)
	missing := make([]string, 0)
	for _, m := range members {
		if _, ok := set[m]; !ok {
			missing = append(missing, m)
		}
	}
	return missing
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
