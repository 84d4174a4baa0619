package memory

import records "github.com/goliatone/go-records"

// ModelOptions configures a model to talk to collection name on a Backend
// using the backend's url layout and response envelope.
func ModelOptions(b *Backend, name string) []records.ModelOption {
	base := "/" + name
	return []records.ModelOption{
		records.WithTransport(b),
		records.WithDefaults(records.OperationConfig{
			IDProp:      b.idProp,
			SuccessProp: "success",
		}),
		records.WithRecordProfile(records.Profile{
			OperationConfig: records.OperationConfig{RootProp: "data"},
			Ops: map[string]records.OperationConfig{
				records.OpLoad:   records.URL(base + "/:" + b.idProp),
				records.OpSave:   {URLFunc: recordSaveURL(base, b.idProp)},
				records.OpDelete: records.URL(base + "/:" + b.idProp + "/delete"),
			},
		}),
		records.WithStoreProfile(records.Profile{
			Ops: map[string]records.OperationConfig{
				records.OpLoad:   {URL: base, RootProp: "items", TotalProp: "total"},
				records.OpSave:   {URL: base + "/batch", RootProp: "data"},
				records.OpDelete: records.URL(base + "/delete"),
			},
		}),
	}
}

// recordSaveURL posts new records to the collection and known ones to their row.
func recordSaveURL(base, idProp string) records.URLFunc {
	return func(call records.Call) string {
		if call.ID == "" {
			return base
		}
		return base + "/:" + idProp
	}
}
