package employee

var MapRepositoryErrorForTest = mapRepositoryError
