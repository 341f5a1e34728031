package config

// FromViper expone fromViper a los tests externos.
var FromViper = fromViper
