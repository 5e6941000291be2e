package dispatch

// Fan-out group keys. Agents get one group per user; managers join both
// their own group and the shared managers group.
const GroupManagers = "managers"

func AgentGroup(agentID string) string {
	return "agent:" + agentID
}

func ManagerGroup(managerID string) string {
	return "manager:" + managerID
}
