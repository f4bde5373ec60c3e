package registry

import "snow-mirror/internal/models"

// Targets returns the mirrored tables in registration order. The sync loop
// walks this slice as-is, so order here is pass order.
//
//nolint:funlen
func Targets() []models.SyncTarget {
	return []models.SyncTarget{
		// Architecture
		{Table: "sys_db_object", Label: "Table Definitions", Category: "architecture"},
		// Scripts
		{Table: "sys_script", Label: "Business Rules", Category: "scripts"},
		{Table: "sys_script_client", Label: "Client Scripts", Category: "scripts"},
		{Table: "sys_script_include", Label: "Script Includes", Category: "scripts"},
		{Table: "sys_ui_action", Label: "UI Actions", Category: "scripts"},
		{Table: "sys_ui_policy", Label: "UI Policies", Category: "scripts"},
		{Table: "sys_processor", Label: "Script Processors", Category: "scripts"},
		// Performance
		{Table: "syslog_transaction", Label: "Transaction Logs", Category: "performance"},
		// Security
		{Table: "sys_security_acl", Label: "ACL Rules", Category: "security"},
		// Integration
		{Table: "sys_rest_message", Label: "REST Messages", Category: "integration"},
		// Data health
		{Table: "sys_dictionary", Label: "Data Dictionary", Category: "data_health"},
		// Upgrade
		{Table: "sys_scope", Label: "App Scopes", Category: "upgrade"},
		// License - users
		{Table: "sys_user", Label: "Users", Category: "license"},
		{Table: "sys_user_has_role", Label: "User Roles", Category: "license"},
		{Table: "sys_user_role", Label: "Role Definitions", Category: "license"},
		{Table: "sys_user_grmember", Label: "Group Members", Category: "license"},
		// License - work records
		{Table: "incident", Label: "Incidents", Category: "license"},
		{Table: "task", Label: "Tasks", Category: "license"},
		{Table: "change_request", Label: "Change Requests", Category: "license"},
		{Table: "problem", Label: "Problems", Category: "license"},
		{Table: "sc_task", Label: "Service Catalog Tasks", Category: "license"},
		// License - admin
		{Table: "sys_audit", Label: "Audit Logs", Category: "license"},
		{Table: "sys_update_xml", Label: "Update Set XML", Category: "license"},
	}
}

// DefaultSkipPatterns lists tables the mirror never pulls, typically because
// the instance restricts API access to them.
func DefaultSkipPatterns() []string {
	return []string{"sys_hub_action_type"}
}
