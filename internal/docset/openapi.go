package docset

import (
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/docsets/internal/config"
)

// Projections onto kin-openapi types for renderers that build the final
// document themselves.

// OpenAPIFragment is the part of an OpenAPI 3 document a descriptor decides.
// Operations are left to the renderer, which applies Parameters and the
// method's Responses to each one it documents.
type OpenAPIFragment struct {
	Info       *openapi3.Info                `json:"info"`
	Components *openapi3.Components          `json:"components,omitempty"`
	Security   openapi3.SecurityRequirements `json:"security,omitempty"`
	Parameters openapi3.Parameters           `json:"parameters,omitempty"`
	Responses  map[Method]openapi3.Responses `json:"responses,omitempty"`
}

// OpenAPI projects d onto kin-openapi types.
func (d *Descriptor) OpenAPI() OpenAPIFragment {
	f := OpenAPIFragment{Info: Info(d.metadata)}
	if d.scheme != nil && d.security != nil {
		f.Components = &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				d.scheme.Name: &openapi3.SecuritySchemeRef{Value: d.scheme.OpenAPI()},
			},
		}
		f.Security = d.security.Requirements()
	}
	if params := d.OpenAPIParameters(); len(params) > 0 {
		f.Parameters = params
	}
	for _, m := range methods {
		if r := d.responses.OpenAPI(m); len(r) > 0 {
			if f.Responses == nil {
				f.Responses = make(map[Method]openapi3.Responses, len(methods))
			}
			f.Responses[m] = r
		}
	}
	return f
}

// Info converts metadata into an OpenAPI info object. Contact and license are
// left nil when every one of their fields is empty.
func Info(m config.Metadata) *openapi3.Info {
	info := &openapi3.Info{
		Title:          m.Title,
		Description:    m.Description,
		Version:        m.Version,
		TermsOfService: m.TermsOfServiceURL,
	}
	if m.Contact != (config.Contact{}) {
		info.Contact = &openapi3.Contact{Name: m.Contact.Name, URL: m.Contact.URL, Email: m.Contact.Email}
	}
	if m.License != "" || m.LicenseURL != "" {
		info.License = &openapi3.License{Name: m.License, URL: m.LicenseURL}
	}
	return info
}

// OpenAPI returns the scheme as a components.securitySchemes entry.
func (s *SecurityScheme) OpenAPI() *openapi3.SecurityScheme {
	if s.Kind == SchemeBasicAuth {
		return openapi3.NewSecurityScheme().WithType("http").WithScheme("basic")
	}
	return openapi3.NewSecurityScheme().WithType("apiKey").WithIn(s.In).WithName(s.KeyName)
}

// Requirements returns one requirement per reference, listing scope names.
func (c *SecurityContext) Requirements() openapi3.SecurityRequirements {
	reqs := make(openapi3.SecurityRequirements, 0, len(c.references))
	for _, ref := range c.references {
		scopes := make([]string, 0, len(ref.Scopes))
		for _, s := range ref.Scopes {
			scopes = append(scopes, s.Scope)
		}
		reqs = append(reqs, openapi3.NewSecurityRequirement().Authenticate(ref.Reference, scopes...))
	}
	return reqs
}

// Parameter converts a configured parameter. Body and form parameters have
// no OpenAPI 3 parameter form and yield nil.
func Parameter(p config.Parameter) *openapi3.Parameter {
	in := strings.ToLower(strings.TrimSpace(p.ParameterType))
	switch in {
	case openapi3.ParameterInHeader, openapi3.ParameterInQuery, openapi3.ParameterInPath, openapi3.ParameterInCookie:
	default:
		return nil
	}
	param := &openapi3.Parameter{
		Name:        p.Name,
		In:          in,
		Description: p.Description,
		Required:    p.Required || in == openapi3.ParameterInPath,
		Schema:      schemaRef(p.ModelRef),
	}
	if p.DefaultValue != "" && param.Schema.Value != nil {
		param.Schema.Value.Default = p.DefaultValue
	}
	return param
}

// OpenAPIParameters converts the descriptor parameters, dropping those with
// no OpenAPI 3 form.
func (d *Descriptor) OpenAPIParameters() openapi3.Parameters {
	out := make(openapi3.Parameters, 0, len(d.parameters))
	for _, p := range d.parameters {
		if param := Parameter(p); param != nil {
			out = append(out, &openapi3.ParameterRef{Value: param})
		}
	}
	return out
}

// OpenAPI returns the responses documented for m. Entries sharing a status
// code are folded into one response whose description lists every message.
func (t ResponseTable) OpenAPI(m Method) openapi3.Responses {
	out := make(openapi3.Responses)
	for _, e := range t.byMethod[m] {
		code := strconv.Itoa(e.Code)
		if ref, ok := out[code]; ok && ref.Value != nil && ref.Value.Description != nil {
			joined := *ref.Value.Description + "\n" + e.Message
			ref.Value.Description = &joined
			continue
		}
		resp := openapi3.NewResponse().WithDescription(e.Message)
		if e.ModelRef != "" {
			resp = resp.WithJSONSchemaRef(schemaRef(e.ModelRef))
		}
		out[code] = &openapi3.ResponseRef{Value: resp}
	}
	return out
}

func schemaRef(model string) *openapi3.SchemaRef {
	switch strings.ToLower(strings.TrimSpace(model)) {
	case "", "string":
		return openapi3.NewStringSchema().NewRef()
	case "int", "integer", "int32":
		return openapi3.NewInt32Schema().NewRef()
	case "long", "int64":
		return openapi3.NewInt64Schema().NewRef()
	case "number", "float", "double":
		return openapi3.NewFloat64Schema().NewRef()
	case "bool", "boolean":
		return openapi3.NewBoolSchema().NewRef()
	default:
		return openapi3.NewSchemaRef("#/components/schemas/"+model, nil)
	}
}
