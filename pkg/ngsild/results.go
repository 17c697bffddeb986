package ngsild

import (
	"encoding/json"

	"github.com/contextsource/ngsild-client/pkg/ngsild/types"
)

type CreateEntityResult struct {
	location string
}

func NewCreateEntityResult(location string) *CreateEntityResult {
	return &CreateEntityResult{
		location: location,
	}
}

func (r CreateEntityResult) Location() string {
	return r.location
}

type UpsertEntityResult struct {
	location string
	created  bool
}

func NewUpsertEntityResult(location string, created bool) *UpsertEntityResult {
	return &UpsertEntityResult{
		location: location,
		created:  created,
	}
}

func (r UpsertEntityResult) Location() string {
	return r.location
}

//Created reports whether the upsert created the entity rather than replacing it
func (r UpsertEntityResult) Created() bool {
	return r.created
}

type QueryEntitiesResult struct {
	Found      chan (types.Entity)
	TotalCount int64
}

func NewQueryEntitiesResult() *QueryEntitiesResult {
	qer := &QueryEntitiesResult{
		Found:      make(chan types.Entity),
		TotalCount: -1,
	}
	return qer
}

type QueryTemporalEntitiesResult struct {
	Found      chan (types.EntityTemporal)
	TotalCount int64
}

func NewQueryTemporalEntitiesResult() *QueryTemporalEntitiesResult {
	qer := &QueryTemporalEntitiesResult{
		Found:      make(chan types.EntityTemporal),
		TotalCount: -1,
	}
	return qer
}

type UpdateEntityAttributesResult struct {
	Updated    []string `json:"updated"`
	NotUpdated []struct {
		AttributeName string `json:"attributeName"`
		Reason        string `json:"reason"`
	} `json:"notUpdated"`
}

func (uear *UpdateEntityAttributesResult) Bytes() []byte {
	b, _ := json.Marshal(uear)
	return b
}

func (uear *UpdateEntityAttributesResult) IsMultiStatus() bool {
	return len(uear.NotUpdated) > 0
}

func NewUpdateEntityAttributesResult(body []byte) (*UpdateEntityAttributesResult, error) {
	uear := &UpdateEntityAttributesResult{}
	if len(body) > 0 {
		err := json.Unmarshal(body, uear)
		if err != nil {
			return nil, err
		}
	}
	return uear, nil
}

type MergeEntityResult struct {
	Updated    []string `json:"updated"`
	NotUpdated []struct {
		AttributeName string `json:"attributeName"`
		Reason        string `json:"reason"`
	} `json:"notUpdated"`
}

func (mer *MergeEntityResult) IsMultiStatus() bool {
	return len(mer.NotUpdated) > 0
}

func NewMergeEntityResult(body []byte) (*MergeEntityResult, error) {
	mer := &MergeEntityResult{}
	if len(body) > 0 {
		err := json.Unmarshal(body, mer)
		if err != nil {
			return nil, err
		}
	}
	return mer, nil
}

type DeleteEntityResult struct{}

func NewDeleteEntityResult() *DeleteEntityResult {
	return &DeleteEntityResult{}
}
