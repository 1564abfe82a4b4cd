package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Vizzuality/HLS-data-project/util"
)

// RemoteModel forwards batches to a model server over HTTP
type RemoteModel struct {
	URL     string
	Context *Context
}

type forwardResponse struct {
	Masks []Mask `json:"masks"`
}

// Forward implements Model. The server receives the collated batch at
// <URL>/predict and answers with one mask per sample.
func (m *RemoteModel) Forward(ctx context.Context, batch Batch) ([]Mask, error) {
	if m.URL == "" {
		return nil, util.NewError(util.Configuration, "no model server configured")
	}
	batch.ImgMetas = serializableMetas(batch.ImgMetas)
	inputURL := strings.TrimSuffix(m.URL, "/") + "/predict"

	util.LogAudit(m.Context, util.LogAuditInput{Actor: "inference/Forward", Action: "POST", Actee: inputURL, Message: fmt.Sprintf("Forward pass of %v on %s", batch.Img.Shape, batch.Device), Severity: util.INFO})
	var response forwardResponse
	status, err := util.ReqByObjJSONContext(ctx, "POST", inputURL, "", batch, &response)
	if err != nil {
		return nil, err
	}
	util.LogAudit(m.Context, util.LogAuditInput{Actor: inputURL, Action: "POST response", Actee: "inference/Forward", Message: fmt.Sprintf("Model server answered %d with %d masks", status, len(response.Masks)), Severity: util.INFO})
	return response.Masks, nil
}

// serializableMetas drops the image payloads that metas may reference
func serializableMetas(metas []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(metas))
	for i, meta := range metas {
		out[i] = make(map[string]interface{}, len(meta))
		for k, v := range meta {
			if k == "img" || k == "img_info" {
				continue
			}
			if _, err := json.Marshal(v); err != nil {
				continue
			}
			out[i][k] = v
		}
	}
	return out
}
