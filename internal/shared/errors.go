package shared

// Message prefixes shared by the layers that raise an error and the CLI
// that maps it to an exit code.
const (
	MsgDescriptorNotFound = "project descriptor not found"
	MsgDescriptorParse    = "failed to parse project descriptor"
	MsgIncompatibleTarget = "incompatible target framework"
	MsgCompilerFailed     = "compiler failed"
	MsgLinkerFailed       = "linker failed"
	MsgProcessTimeout     = "external process timed out"
	MsgBuildActionFailed  = "build action failed"
	MsgArgFileNotFound    = "argument file not found"
)
