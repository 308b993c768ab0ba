package native

func init() {
	MustRegister("gain", GainPlugin{})
	MustRegister("upmix", UpmixPlugin{})
	MustRegister("notemonitor", NoteMonitorPlugin{})
}
