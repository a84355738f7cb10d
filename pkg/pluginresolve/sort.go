package pluginresolve

import "sort"

// Sort orders plugins ascending by order, breaking ties by id then
// localPath (spec §3, Open Question 2).
func Sort(plugins []ResolvedProtocPlugin) {
	sort.Slice(plugins, func(i, j int) bool {
		a, b := plugins[i], plugins[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.LocalPath < b.LocalPath
	})
}
