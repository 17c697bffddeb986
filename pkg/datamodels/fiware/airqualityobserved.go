package fiware

import (
	"strings"

	"github.com/contextsource/ngsild-client/pkg/ngsild/types/entities"
)

//NewAirQualityObserved creates a new instance of AirQualityObserved
func NewAirQualityObserved(observationID string, latitude float64, longitude float64, observedAt string, decorators ...entities.EntityDecoratorFunc) (*entities.EntityImpl, error) {

	if !strings.HasPrefix(observationID, AirQualityObservedIDPrefix) {
		observationID = AirQualityObservedIDPrefix + observationID
	}

	decorators = append(decorators, entities.DefaultContext())

	e, err := entities.New(observationID, AirQualityObservedTypeName, decorators...)
	if err != nil {
		return nil, err
	}

	if _, err = e.Observed(observedAt); err != nil {
		return nil, err
	}

	if _, err = e.Location(latitude, longitude); err != nil {
		return nil, err
	}

	return e, nil
}
