package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	ngsierrors "github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types/attributes"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types/entities"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"

	"github.com/matryer/is"
	matryeris "github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var anyInput = expects.AnyInput
var method = expects.RequestMethod
var path = expects.RequestPath
var body = expects.RequestBody

func TestCreateEntity(t *testing.T) {
	is := is.New(t)

	locationHeader := "/ngsi-ld/v1/entities/urn:ngsi-ld:Road:id"
	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/ngsi-ld/v1/entities"),
			body("{\"id\":\"urn:ngsi-ld:Road:id\",\"type\":\"Road\",\"@context\":[\"https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context.jsonld\"]}"),
		),
		Returns(
			response.ContentType("application/ld+json"),
			response.Location(locationHeader),
			response.Code(http.StatusCreated),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	result, err := c.CreateEntity(context.Background(), testEntity("Road", "id"), nil)

	is.NoErr(err)
	is.Equal(result.Location(), locationHeader)
}

func TestCreateEntityHandlesMissingLocationHeader(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/ld+json"),
			response.Code(http.StatusCreated),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	result, err := c.CreateEntity(context.Background(), testEntity("Road", "id"), nil)

	is.NoErr(err)
	is.Equal(result.Location(), "/ngsi-ld/v1/entities/urn%3Angsi-ld%3ARoad%3Aid")
}

func TestCreateEntityThrowsErrorOnNon201Success(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	_, err := c.CreateEntity(context.Background(), testEntity("Road", "id"), nil)

	is.True(err != nil)
	is.Equal(err.Error(), "unexpected response code 204 (internal error)")
}

func TestCreateEntityHandlesBadRequestError(t *testing.T) {
	is := is.New(t)

	pr := ngsierrors.NewBadRequestData("bad request", "traceID")
	b, _ := json.Marshal(pr)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/problem+json"),
			response.Code(http.StatusBadRequest),
			response.Body(b),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	_, err := c.CreateEntity(context.Background(), testEntity("A", "id"), nil)

	is.True(err != nil)
	is.True(errors.Is(err, ngsierrors.ErrBadRequest))
}

func TestUpsertEntityCreatesWhenMissing(t *testing.T) {
	is := is.New(t)

	locationHeader := "/ngsi-ld/v1/entities/urn:ngsi-ld:Road:id"
	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodPost), path("/ngsi-ld/v1/entities")),
		Returns(
			response.Location(locationHeader),
			response.Code(http.StatusCreated),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	result, err := c.UpsertEntity(context.Background(), testEntity("Road", "id"), nil)

	is.NoErr(err)
	is.True(result.Created())
	is.Equal(result.Location(), locationHeader)
	is.Equal(s.RequestCount(), 1)
}

func TestUpsertEntityAttemptsDeleteOnConflict(t *testing.T) {
	is := is.New(t)

	pr := ngsierrors.NewAlreadyExists("already exists", "traceID")
	b, _ := json.Marshal(pr)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/problem+json"),
			response.Code(http.StatusConflict),
			response.Body(b),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	_, err := c.UpsertEntity(context.Background(), testEntity("Road", "id"), nil)

	is.True(errors.Is(err, ngsierrors.ErrAlreadyExists))
	is.Equal(s.RequestCount(), 2) // create, then the delete that also failed
}

func TestRetrieveEntity(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/ngsi-ld/v1/entities/id"),
		),
		Returns(
			response.ContentType("application/ld+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(entityResponse)),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	e, err := c.RetrieveEntity(context.Background(), "id", nil)

	is.NoErr(err)
	is.Equal(e.ID(), "urn:ngsi-ld:WaterConsumptionObserved:w1")

	a, ok := e.(*entities.EntityImpl).Attribute("waterConsumption")
	is.True(ok)
	is.Equal(a.Value(), 100.0)
}

func TestRetrieveEntityNotFound(t *testing.T) {
	is := is.New(t)

	pr := ngsierrors.NewNotFound("not found", "traceID")
	b, _ := json.Marshal(pr)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/problem+json"),
			response.Code(http.StatusNotFound),
			response.Body(b),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	_, err := c.RetrieveEntity(context.Background(), "id", nil)

	is.True(errors.Is(err, ngsierrors.ErrNotFound))
}

func TestQueryEntities(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/ngsi-ld/v1/entities"),
			QueryParamEquals("type", "WaterConsumptionObserved"),
			QueryParamEquals("attrs", "waterConsumption"),
		),
		Returns(
			response.ContentType("application/ld+json"),
			response.Code(http.StatusOK),
			response.Body([]byte("["+entityResponse+"]")),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	result, err := c.QueryEntities(context.Background(), []string{"WaterConsumptionObserved"}, []string{"waterConsumption"}, "", nil)
	is.NoErr(err)

	e := <-result.Found
	is.True(e != nil)
	is.Equal(e.ID(), "urn:ngsi-ld:WaterConsumptionObserved:w1")

	e = <-result.Found
	is.True(e == nil) // the nil terminator should follow the last entity
}

func TestMergeEntity(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPatch),
			path("/ngsi-ld/v1/entities/id"),
			body("{\"id\":\"urn:ngsi-ld:Road:id\",\"type\":\"Road\",\"@context\":[\"https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context.jsonld\"]}"),
		),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	_, err := c.MergeEntity(context.Background(), "id", testEntity("Road", "id"), nil)

	is.NoErr(err)
	is.Equal(s.RequestCount(), 1)
}

func TestUpdateEntityAttributesWithMetadata(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPatch),
			path("/ngsi-ld/v1/entities/id/attrs/"),
			body(
				"{\"waterConsumption\":{\"type\":\"Property\",\"value\":100,\"unitCode\":\"LTR\",\"observedAt\":\"2006-01-02T15:04:05Z\",\"observedBy\":{\"type\":\"Relationship\",\"object\":\"urn:ngsi-ld:Device:01\"}},\"@context\":[\"https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context.jsonld\"]}",
			),
		),
		Returns(
			response.Code(http.StatusNoContent),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	consumption, err := attributes.NewProperty(100.0,
		attributes.UnitCode("LTR"),
		attributes.ObservedAt("2006-01-02T15:04:05Z"),
	)
	is.NoErr(err)

	observedBy, err := attributes.NewRelationship("Device:01")
	is.NoErr(err)
	consumption.Attach("observedBy", observedBy)

	fragment, _ := entities.NewFragment(entities.A("waterConsumption", consumption))

	_, err = c.UpdateEntityAttributes(context.Background(), "id", fragment, nil)
	is.NoErr(err)
	is.Equal(s.RequestCount(), 1)
}

func TestDeleteEntity(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodDelete),
			path("/ngsi-ld/v1/entities/id"),
			body(""),
		),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	_, err := c.DeleteEntity(context.Background(), "id")

	is.NoErr(err)
	is.Equal(s.RequestCount(), 1)
}

func TestDeleteEntityNotFound(t *testing.T) {
	is := is.New(t)

	pr := ngsierrors.NewNotFound("not found", "traceID")
	b, _ := json.Marshal(pr)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/problem+json"),
			response.Code(http.StatusNotFound),
			response.Body(b),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())

	_, err := c.DeleteEntity(context.Background(), "id")

	is.True(err != nil)
	is.True(errors.Is(err, ngsierrors.ErrNotFound))
}

func TestRetrieveTemporalEvolutionOfAnEntity(t *testing.T) {
	is := is.New(t)

	timeStr := "2023-01-22T11:59:43Z"

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			expects.RequestPath("/ngsi-ld/v1/temporal/entities/id"),
			QueryParamEquals("timerel", "after"),
			QueryParamEquals("timeAt", timeStr),
		),
		Returns(
			response.ContentType("application/ld+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(temporalEntityResponse)),
		),
	)
	defer s.Close()

	headers := map[string][]string{"Accept": {"application/ld+json"}}
	timeAt, _ := time.Parse(time.RFC3339, timeStr)

	c := NewContextBrokerClient(s.URL())
	_, err := c.RetrieveTemporalEvolutionOfEntity(context.Background(), "id", headers, After(timeAt))

	is.NoErr(err)
}

func TestRetrieveTemporalEvolutionOfAnEntityWithSingleValue(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, expects.AnyInput()),
		Returns(
			response.ContentType("application/ld+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(temporalEntityResponseWithSingleValue)),
		),
	)
	defer s.Close()

	headers := map[string][]string{"Accept": {"application/ld+json"}}

	c := NewContextBrokerClient(s.URL())
	et, err := c.RetrieveTemporalEvolutionOfEntity(context.Background(), "id", headers)
	is.NoErr(err)

	etBytes, err := json.Marshal(et)
	is.NoErr(err)

	const expectation string = `{"id":"urn:ngsi-ld:Vehicle:B9211","type":"Vehicle","speed":[{"type":"Property","value":120,"observedAt":"2018-08-01T12:03:00Z"}],"@context":["http://example.org/ngsi-ld/latest/vehicle.jsonld","https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context-v1.5.jsonld"]}`
	is.Equal(string(etBytes), expectation)
}

func TestRetrieveAggregatedTemporalEvolutionOfAnEntity(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			expects.RequestPath("/ngsi-ld/v1/temporal/entities/id"),
			QueryParamContains("aggrMethods", "max"),
			QueryParamEquals("aggrPeriodDuration", "P1D"),
			QueryParamEquals("options", "aggregatedValues"),
		),
		Returns(
			response.ContentType("application/ld+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(temporalEntityResponse)),
		),
	)
	defer s.Close()

	headers := map[string][]string{"Accept": {"application/ld+json"}}

	c := NewContextBrokerClient(s.URL())
	_, err := c.RetrieveTemporalEvolutionOfEntity(context.Background(), "id", headers,
		Aggregation(
			[]AggregationMethod{AggregatedMax, AggregatedMin},
			ByDay(),
		))

	is.NoErr(err)
}

func TestQueryTemporalEvolutionOfEntities(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			expects.RequestPath("/ngsi-ld/v1/temporal/entities"),
			QueryParamEquals("options", "temporalValues"),
			QueryParamEquals("lastN", "10"),
		),
		Returns(
			response.ContentType("application/ld+json"),
			response.Code(http.StatusOK),
			response.Body([]byte("["+condensedTemporalEntityResponse+"]")),
		),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL())
	result, err := c.QueryTemporalEvolutionOfEntities(context.Background(), nil, TemporalValues(), LastN(10))
	is.NoErr(err)

	et := <-result.Found
	is.True(et != nil)
	is.Equal(et.ID(), "urn:ngsi-ld:Room:Room1")
	is.Equal(len(et.Attributes()[0].Instances()), 2)

	et = <-result.Found
	is.True(et == nil)
}

func TestTenantHeaderIsSentForNonDefaultTenants(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			func(is *matryeris.I, r *http.Request) {
				is.Equal(r.Header.Get("NGSILD-Tenant"), "smartcity")
			},
		),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	c := NewContextBrokerClient(s.URL(), Tenant("smartcity"))

	_, err := c.DeleteEntity(context.Background(), "id")
	is.NoErr(err)
}

func testEntity(entityType, entityID string) types.Entity {
	e, _ := entities.New(entityID, entityType)
	return e
}

const entityResponse string = `{
	"id": "urn:ngsi-ld:WaterConsumptionObserved:w1",
	"type": "WaterConsumptionObserved",
	"waterConsumption": {
		"type": "Property",
		"value": 100.0,
		"unitCode": "LTR"
	},
	"@context": ["https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context.jsonld"]
}`

const temporalEntityResponse string = `{
	"id":"urn:ngsi-ld:Vehicle:B9211", "type":"Vehicle",
"speed":[
{
"type":"Property",
"value":120, "observedAt":"2018-08-01T12:03:00Z"
}, {
"type":"Property",
"value":80, "observedAt":"2018-08-01T12:05:00Z"
}, {
"type":"Property",
"value":100, "observedAt":"2018-08-01T12:07:00Z"
} ],
"@context":[
"http://example.org/ngsi-ld/latest/vehicle.jsonld", "https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context-v1.5.jsonld"
] }`

const temporalEntityResponseWithSingleValue string = `{
	"id":"urn:ngsi-ld:Vehicle:B9211", "type":"Vehicle",
	"speed":{
		"type":"Property",
		"value":120, "observedAt":"2018-08-01T12:03:00Z"
	},
	"@context":[
		"http://example.org/ngsi-ld/latest/vehicle.jsonld",
		"https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context-v1.5.jsonld"
	]
}`

const condensedTemporalEntityResponse string = `{
	"id": "urn:ngsi-ld:Room:Room1",
	"type": "Room",
	"temperature": {
		"type": "Property",
		"values": [[22.5, "2023-01-01T10:00:00Z"], [23.0, "2023-01-01T11:00:00Z"]]
	}
}`

func QueryParamContains(name, value string) func(*is.I, *http.Request) {
	return func(is *is.I, r *http.Request) {
		is.True(r.URL.Query().Has(name)) // query param should exist

		for _, v := range strings.Split(r.URL.Query().Get(name), ",") {
			if v == value {
				return // it is a match!
			}
		}

		is.Fail() // query params did not contain expected value
	}
}

func QueryParamEquals(name, value string) func(*is.I, *http.Request) {
	return func(is *is.I, r *http.Request) {
		is.True(r.URL.Query().Has(name))         // query param should exist
		is.Equal(r.URL.Query().Get(name), value) // query param should match
	}
}
