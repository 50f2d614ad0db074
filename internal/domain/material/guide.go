package material

import "fmt"

// Section is one block of the in-app guide.
type Section struct {
	Title string   `json:"title"`
	Icon  string   `json:"icon"`
	Items []string `json:"items"`
}

var guide = []Section{
	{
		Title: "Como usar",
		Icon:  "cellphone-information",
		Items: []string{
			"Na tela Ranking, cadastre as equipes da turma",
			"Na tela Reciclar, escolha a equipe e o material entregue e registre",
			"Materiais mais poluentes valem mais pontos",
			"Acompanhe o Ranking por equipe e os totais da turma na Home",
			"No fim da atividade, reconheça a contribuição de cada equipe",
		},
	},
	{
		Title: "Objetivo",
		Icon:  "school",
		Items: []string{
			"Feito para a sala de aula",
			"Transforma a reciclagem em uma competição saudável",
			"Mostra o impacto ambiental enquanto a atividade acontece",
		},
	},
	{
		Title: "Como reciclar",
		Icon:  "recycle",
		Items: []string{
			"Separe por tipo: plástico, vidro, papel e metal",
			"Lave as embalagens antes de entregar",
			"Amasse ou dobre para ocupar menos espaço",
			"Use os pontos de coleta da escola",
		},
	},
	{
		Title: "Por que reciclar",
		Icon:  "leaf",
		Items: []string{
			"Poupa recursos naturais",
			"Reduz a poluição do ar, da água e do solo",
			"Gasta menos energia do que produzir material novo",
			"Diminui o lixo enviado aos aterros",
		},
	},
}

// Guide returns the in-app rules and tips. The scoring section is built from
// the point table so it never drifts from what registration credits.
func Guide() []Section {
	out := make([]Section, 0, len(guide)+1)
	for _, s := range guide {
		s.Items = append([]string(nil), s.Items...)
		out = append(out, s)
	}
	scoring := Section{Title: "Pontuação", Icon: "star"}
	for _, d := range selectable {
		scoring.Items = append(scoring.Items, fmt.Sprintf("%s: %d pontos", d.Name, d.Points))
	}
	return append(out, scoring)
}
