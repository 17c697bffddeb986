package fiware

import (
	"strings"

	"github.com/contextsource/ngsild-client/pkg/ngsild/types/entities"
)

//NewWeatherObserved creates a new instance of WeatherObserved
func NewWeatherObserved(observationID string, latitude float64, longitude float64, observedAt string, decorators ...entities.EntityDecoratorFunc) (*entities.EntityImpl, error) {

	if !strings.HasPrefix(observationID, WeatherObservedIDPrefix) {
		observationID = WeatherObservedIDPrefix + observationID
	}

	decorators = append(decorators, entities.DefaultContext())

	e, err := entities.New(observationID, WeatherObservedTypeName, decorators...)
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
